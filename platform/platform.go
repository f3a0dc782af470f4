// Package platform evaluates platform firmware methods that describe the
// battery pack and the charger setpoints.
//
// Methods return a list of arguments, most of them integers. The values are
// loaded from a YAML description of the board:
//
//	buses:
//	  pmic: {address: 0x49}
//	  fuelgauge: {address: 0x71}
//	methods:
//	  BATT: [5000, 4800, 1, 3850]
//	  PMIC: [1, 1500, 1000, 200]
package platform

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/sm5714"
)

const (
	MethodBattery = "BATT"
	MethodPMIC    = "PMIC"
)

// Argument is one value returned by a firmware method.
type Argument struct {
	Integer bool
	Value   int64
	Raw     string
}

// Evaluator runs a named firmware method.
type Evaluator interface {
	Evaluate(ctx context.Context, method string) ([]Argument, error)
}

type Bus struct {
	Device  string `yaml:"device,omitempty"`
	Address uint8  `yaml:"address"`
}

type Buses struct {
	PMIC      Bus `yaml:"pmic"`
	FuelGauge Bus `yaml:"fuelgauge"`
}

// File is a board description loaded from YAML.
type File struct {
	Buses   Buses                `yaml:"buses"`
	Methods map[string]yaml.Node `yaml:"methods"`
}

var _ Evaluator = &File{}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("platform: could not read %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	err := yaml.Unmarshal(data, &f)
	if err != nil {
		return nil, fmt.Errorf("platform: could not parse description: %w", err)
	}
	return &f, nil
}

// Evaluate returns the arguments of the named method. A missing method or a
// value that is not a list is reported as sm5714.ErrConfigUnavailable.
func (f *File) Evaluate(ctx context.Context, method string) ([]Argument, error) {
	node, ok := f.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%w: method %s missing", sm5714.ErrConfigUnavailable, method)
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: method %s did not return a package", sm5714.ErrConfigUnavailable, method)
	}
	args := make([]Argument, 0, len(node.Content))
	for _, item := range node.Content {
		arg := Argument{Raw: item.Value}
		if item.Kind == yaml.ScalarNode && item.ShortTag() == "!!int" {
			v, err := strconv.ParseInt(item.Value, 0, 64)
			if err == nil {
				arg.Integer = true
				arg.Value = v
			}
		}
		args = append(args, arg)
	}
	return args, nil
}

// Static is an in-memory evaluator, mostly for tests.
type Static map[string][]int64

func (s Static) Evaluate(ctx context.Context, method string) ([]Argument, error) {
	values, ok := s[method]
	if !ok {
		return nil, fmt.Errorf("%w: method %s missing", sm5714.ErrConfigUnavailable, method)
	}
	args := make([]Argument, len(values))
	for i, v := range values {
		args[i] = Argument{Integer: true, Value: v, Raw: strconv.FormatInt(v, 10)}
	}
	return args, nil
}
