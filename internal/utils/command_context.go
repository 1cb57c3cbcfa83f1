package utils

import "context"

type commandContextKey string

const runMetadataContextKeyConstant = commandContextKey("runMetadata")

// RunMetadata describes where the configuration of the current run came from.
type RunMetadata struct {
	ConfigurationFilePath string
	EnvironmentFilePath   string
	EnvironmentFileLoaded bool
}

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithRunMetadata attaches run metadata to the provided context.
func (accessor CommandContextAccessor) WithRunMetadata(parentContext context.Context, metadata RunMetadata) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, runMetadataContextKeyConstant, metadata)
}

// RunMetadata extracts the run metadata from the provided context.
func (accessor CommandContextAccessor) RunMetadata(executionContext context.Context) (RunMetadata, bool) {
	if executionContext == nil {
		return RunMetadata{}, false
	}
	metadata, available := executionContext.Value(runMetadataContextKeyConstant).(RunMetadata)
	return metadata, available
}
