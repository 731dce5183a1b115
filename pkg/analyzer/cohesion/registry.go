package cohesion

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/panbanda/jcohesion/pkg/models"
)

// ErrUnknownMetric is returned for a metric name with no calculator.
var ErrUnknownMetric = errors.New("unknown metric")

// Calculator computes one metric for one class. Calculators are pure: the
// same model and options always produce the same result, and the model is
// never modified.
type Calculator func(*models.ClassModel, Options) Result

var calculators = map[string]Calculator{
	"LCOM":  LCOM,
	"LCOM2": LCOM2,
	"LCOM3": LCOM3,
	"LCOM4": LCOM4,
	"LCOM5": LCOM5,
	"CAMC":  CAMC,
	"MMAC":  MMAC,
	"NHD":   NHD,
	"OCC":   OCC,
	"CCM":   CCM,
	"TCC":   TCC,
	"LCC":   LCC,
	"PCC":   PCC,
	"SCOM":  SCOM,
}

// Names returns every registered metric name in sorted order.
func Names() []string {
	names := make([]string, 0, len(calculators))
	for name := range calculators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the calculator registered under name. Names are matched
// case-insensitively.
func Lookup(name string) (Calculator, error) {
	calc, ok := calculators[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return calc, nil
}

// Calculate runs the named metric on c.
func Calculate(name string, c *models.ClassModel, opts Options) (Result, error) {
	calc, err := Lookup(name)
	if err != nil {
		return Result{}, err
	}
	return calc(c, opts), nil
}
