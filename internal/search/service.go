package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/offboard/internal/identity"
	"github.com/temirov/offboard/internal/sources"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultConcurrency = 4
)

const (
	sourcesFieldConstant            = "sources"
	noSourcesMessageConstant        = "at least one source must be configured"
	nilSourceTemplateConstant       = "source at position %d is not configured"
	panicTemplateConstant           = "adapter panicked: %v"
	timeoutTemplateConstant         = "timed out after %s"
	searchStartedMessageConstant    = "Searching account sources"
	sourceMatchedMessageConstant    = "Source matched"
	sourceNoMatchMessageConstant    = "Source has no match"
	sourceFailedMessageConstant     = "Source failed"
	searchCompletedMessageConstant  = "Search completed"
	queryFieldNameConstant          = "query"
	sourceFieldNameConstant         = "source"
	sourceCountFieldNameConstant    = "source_count"
	capabilityFieldNameConstant     = "capability"
	candidateCountFieldNameConstant = "candidates"
	matchCountFieldNameConstant     = "matches"
	errorKindFieldNameConstant      = "error_kind"
	durationFieldNameConstant       = "duration"
	concurrencyFieldNameConstant    = "concurrency"
	timeoutFieldNameConstant        = "timeout"
)

// Observer receives the outcome of every source search.
type Observer interface {
	ObserveSource(sourceName string, outcome string, errorKind string, duration time.Duration, matchCount int)
}

// ServiceDependencies describes the collaborators of a search.
type ServiceDependencies struct {
	Sources  []sources.Source
	Logger   *zap.Logger
	Observer Observer
	Clock    func() time.Time
}

// Options tunes a search. Zero values select the defaults.
type Options struct {
	Timeout     time.Duration
	Concurrency int
}

// Service searches a fixed, ordered set of sources.
type Service struct {
	sources     []sources.Source
	logger      *zap.Logger
	observer    Observer
	clock       func() time.Time
	timeout     time.Duration
	concurrency int
}

// NewService validates the source list and constructs a Service.
func NewService(dependencies ServiceDependencies, options Options) (*Service, error) {
	if len(dependencies.Sources) == 0 {
		return nil, sources.NewConfigurationError(sourcesFieldConstant, noSourcesMessageConstant)
	}
	for sourceIndex, configuredSource := range dependencies.Sources {
		if configuredSource == nil {
			return nil, sources.NewConfigurationError(sourcesFieldConstant, fmt.Sprintf(nilSourceTemplateConstant, sourceIndex))
		}
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = time.Now
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	concurrency := options.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	configuredSources := make([]sources.Source, len(dependencies.Sources))
	copy(configuredSources, dependencies.Sources)

	return &Service{
		sources:     configuredSources,
		logger:      logger,
		observer:    dependencies.Observer,
		clock:       clock,
		timeout:     timeout,
		concurrency: concurrency,
	}, nil
}

// Search queries every source and returns one result per source in configured
// order. It never fails: source failures are reported in their results.
func (service *Service) Search(executionContext context.Context, query string) Report {
	if executionContext == nil {
		executionContext = context.Background()
	}

	service.logger.Info(searchStartedMessageConstant,
		zap.String(queryFieldNameConstant, query),
		zap.Int(sourceCountFieldNameConstant, len(service.sources)),
		zap.Int(concurrencyFieldNameConstant, service.concurrency),
		zap.Duration(timeoutFieldNameConstant, service.timeout),
	)

	results := make([]Result, len(service.sources))

	var workerGroup errgroup.Group
	workerGroup.SetLimit(service.concurrency)
	for sourceIndex, configuredSource := range service.sources {
		workerGroup.Go(func() error {
			results[sourceIndex] = service.searchSource(executionContext, configuredSource, query)
			return nil
		})
	}
	_ = workerGroup.Wait()

	report := Report{Query: query, Results: results}
	service.logger.Info(searchCompletedMessageConstant,
		zap.String(queryFieldNameConstant, query),
		zap.Int(matchCountFieldNameConstant, report.MatchCount()),
	)
	return report
}

func (service *Service) searchSource(executionContext context.Context, configuredSource sources.Source, query string) Result {
	startedAt := service.clock()

	sourceContext, cancel := context.WithTimeout(executionContext, service.timeout)
	defer cancel()

	matches, candidateCount, searchError := service.collectMatches(sourceContext, configuredSource, query)
	duration := service.clock().Sub(startedAt)

	result := Result{
		SourceName: configuredSource.Name(),
		Capability: configuredSource.Capability(),
		Checked:    true,
	}

	sourceLogger := service.logger.With(
		zap.String(sourceFieldNameConstant, result.SourceName),
		zap.String(capabilityFieldNameConstant, string(result.Capability)),
		zap.Duration(durationFieldNameConstant, duration),
	)

	switch {
	case searchError != nil:
		searchError = service.normalizeError(sourceContext, result.SourceName, searchError)
		result.Outcome = OutcomeError
		result.ErrorKind = sources.ClassifyError(searchError)
		result.ErrorMessage = sources.Reason(searchError)
		sourceLogger.Warn(sourceFailedMessageConstant,
			zap.String(errorKindFieldNameConstant, string(result.ErrorKind)),
			zap.Error(searchError),
		)
	case len(matches) == 0:
		result.Outcome = OutcomeNoMatch
		sourceLogger.Info(sourceNoMatchMessageConstant, zap.Int(candidateCountFieldNameConstant, candidateCount))
	default:
		result.Outcome = OutcomeMatched
		result.Matches = matches
		sourceLogger.Info(sourceMatchedMessageConstant,
			zap.Int(candidateCountFieldNameConstant, candidateCount),
			zap.Int(matchCountFieldNameConstant, len(matches)),
		)
	}

	if service.observer != nil {
		service.observer.ObserveSource(result.SourceName, string(result.Outcome), string(result.ErrorKind), duration, len(result.Matches))
	}

	return result
}

// collectMatches lists, filters, and describes identities. A panic inside the
// adapter is returned as an unavailability error.
func (service *Service) collectMatches(sourceContext context.Context, configuredSource sources.Source, query string) (matches []Match, candidateCount int, searchError error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			matches = nil
			searchError = sources.NewUnavailableError(configuredSource.Name(), fmt.Errorf(panicTemplateConstant, recovered))
		}
	}()

	identities, listError := configuredSource.ListIdentities(sourceContext, query)
	if listError != nil {
		return nil, 0, listError
	}

	matchedIdentities := identity.MatchingIdentities(query, identities)
	matches = make([]Match, 0, len(matchedIdentities))
	for _, matchedIdentity := range matchedIdentities {
		describedProperties := configuredSource.Describe(matchedIdentity)
		if describedProperties == nil {
			describedProperties = identity.Properties{}
		}
		matches = append(matches, Match{
			Identifier: matchedIdentity.Identifier,
			Properties: describedProperties,
		})
	}
	return matches, len(identities), nil
}

// normalizeError keeps adapter format and unavailability errors and turns
// everything else, including timeouts, into unavailability.
func (service *Service) normalizeError(sourceContext context.Context, sourceName string, searchError error) error {
	if errors.Is(sourceContext.Err(), context.DeadlineExceeded) {
		return sources.NewUnavailableError(sourceName, fmt.Errorf(timeoutTemplateConstant, service.timeout))
	}

	switch sources.ClassifyError(searchError) {
	case sources.ErrorKindFormat:
		return searchError
	default:
		var unavailableError *sources.UnavailableError
		if errors.As(searchError, &unavailableError) {
			return searchError
		}
		return sources.NewUnavailableError(sourceName, searchError)
	}
}
