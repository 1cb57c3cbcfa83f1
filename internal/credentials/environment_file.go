package credentials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const environmentFileLoadErrorTemplateConstant = "unable to load environment file %s: %w"

// LoadEnvironmentFile exports the variables declared in a dotenv file into the
// process environment. Variables that are already set keep their values. A
// missing file is ignored unless required is true.
func LoadEnvironmentFile(filePath string, required bool) (bool, error) {
	trimmedPath := strings.TrimSpace(filePath)
	if len(trimmedPath) == 0 {
		return false, nil
	}

	if _, statError := os.Stat(trimmedPath); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) && !required {
			return false, nil
		}
		return false, fmt.Errorf(environmentFileLoadErrorTemplateConstant, trimmedPath, statError)
	}

	if loadError := godotenv.Load(trimmedPath); loadError != nil {
		return false, fmt.Errorf(environmentFileLoadErrorTemplateConstant, trimmedPath, loadError)
	}

	return true, nil
}
