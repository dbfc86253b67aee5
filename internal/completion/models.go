package completion

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownModel is returned for model names outside the configured list.
var ErrUnknownModel = errors.New("unknown model")

// Catalog is the configured list of selectable models. The first is the default.
type Catalog struct {
	models []string
}

func NewCatalog(models []string) Catalog {
	return Catalog{models: slices.Clone(models)}
}

// Models returns the recognized model names in configured order.
func (c Catalog) Models() []string {
	return slices.Clone(c.models)
}

// Default returns the model used when a request names none.
func (c Catalog) Default() string {
	if len(c.models) == 0 {
		return ""
	}
	return c.models[0]
}

// Resolve maps a requested model name to a recognized one.
func (c Catalog) Resolve(name string) (string, error) {
	if name == "" {
		if d := c.Default(); d != "" {
			return d, nil
		}
		return "", fmt.Errorf("%w: no models configured", ErrUnknownModel)
	}
	if slices.Contains(c.models, name) {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownModel, name)
}
