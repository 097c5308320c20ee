package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Variable types accepted in a variable specification.
const (
	TypeCategorical = "categorical"
	TypeNumerical   = "numerical"
)

// VariableGroup lists columns that share a target type.
type VariableGroup struct {
	Name  string   `yaml:"-"`
	Type  string   `yaml:"type"`
	Names []string `yaml:"names"`
}

// VariableSpec declares which raw columns survive cleaning, grouped in file order.
type VariableSpec struct {
	Groups []VariableGroup
}

type variableSpecFile struct {
	Variables yaml.Node `yaml:"variables"`
}

// UnmarshalYAML keeps the groups in document order so column order is stable.
func (s *VariableSpec) UnmarshalYAML(n *yaml.Node) error {
	var file variableSpecFile
	if err := n.Decode(&file); err != nil {
		return err
	}
	if file.Variables.Kind != yaml.MappingNode {
		return eris.New("spec: variables must be a mapping")
	}
	content := file.Variables.Content
	for i := 0; i+1 < len(content); i += 2 {
		var g VariableGroup
		if err := content[i+1].Decode(&g); err != nil {
			return eris.Wrapf(err, "spec: variable group %q", content[i].Value)
		}
		g.Name = content[i].Value
		switch g.Type {
		case TypeCategorical, TypeNumerical, "":
		default:
			return eris.Errorf("spec: variable group %q has unknown type %q", g.Name, g.Type)
		}
		s.Groups = append(s.Groups, g)
	}
	return nil
}

// Columns returns every retained column in spec order.
func (s VariableSpec) Columns() []string {
	var out []string
	for _, g := range s.Groups {
		out = append(out, g.Names...)
	}
	return out
}

// Recoding is one value map applied to the raw table. When Filter is set
// only columns whose name contains it are rewritten.
type Recoding struct {
	Name   string
	Filter string
	Values map[string]string
}

// RecodeSpec holds the value substitutions applied before subsetting.
type RecodeSpec struct {
	Utility        map[string]string `yaml:"utility"`
	Treatment      map[string]string `yaml:"treatment"`
	Trust          map[string]string `yaml:"trust"`
	LocationFilter map[string]string `yaml:"locationFilter"`
	Gender         map[string]string `yaml:"gender"`
	District       map[string]string `yaml:"district"`
	Attributes     []Recoding        `yaml:"-"`
	ColumnFilters  map[string]string `yaml:"column_filters"`
	NewNames       []string          `yaml:"new_names"`
}

type recodeSpecFile struct {
	Utility        map[string]string `yaml:"utility"`
	Treatment      map[string]string `yaml:"treatment"`
	Trust          map[string]string `yaml:"trust"`
	LocationFilter map[string]string `yaml:"locationFilter"`
	Gender         map[string]string `yaml:"gender"`
	District       map[string]string `yaml:"district"`
	Attributes     yaml.Node         `yaml:"attributes"`
	ColumnFilters  map[string]string `yaml:"column_filters"`
	NewNames       []string          `yaml:"new_names"`
}

// socDistributiveFilter restricts the socially distributive attribute to its
// own columns; its raw codes collide with other attribute groups.
const socDistributiveFilter = "att_2"

// UnmarshalYAML decodes the spec, keeping attribute groups in document order.
func (s *RecodeSpec) UnmarshalYAML(n *yaml.Node) error {
	var file recodeSpecFile
	if err := n.Decode(&file); err != nil {
		return err
	}
	*s = RecodeSpec{
		Utility:        file.Utility,
		Treatment:      file.Treatment,
		Trust:          file.Trust,
		LocationFilter: file.LocationFilter,
		Gender:         file.Gender,
		District:       file.District,
		ColumnFilters:  file.ColumnFilters,
		NewNames:       file.NewNames,
	}
	if file.Attributes.Kind == 0 {
		return nil
	}
	if file.Attributes.Kind != yaml.MappingNode {
		return eris.New("spec: attributes must be a mapping")
	}
	content := file.Attributes.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := content[i].Value
		values := map[string]string{}
		if err := content[i+1].Decode(&values); err != nil {
			return eris.Wrapf(err, "spec: attribute recoding %q", name)
		}
		filter := s.ColumnFilters[name]
		if filter == "" && name == "soc_distributive" {
			filter = socDistributiveFilter
		}
		s.Attributes = append(s.Attributes, Recoding{Name: name, Filter: filter, Values: values})
	}
	return nil
}

// Global returns the whole-table recodings in application order.
func (s RecodeSpec) Global() []Recoding {
	var out []Recoding
	for _, r := range []Recoding{
		{Name: "utility", Values: s.Utility},
		{Name: "treatment", Values: s.Treatment},
		{Name: "trust", Values: s.Trust},
		{Name: "locationFilter", Values: s.LocationFilter},
		{Name: "gender", Values: s.Gender},
		{Name: "district", Values: s.District},
	} {
		if len(r.Values) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// PlotSpec orders attribute levels for figures.
type PlotSpec struct {
	Order  map[string][]string `yaml:"order"`
	Labels map[string]string   `yaml:"labels"`
}

// LoadVariableSpec reads a variable specification file.
func LoadVariableSpec(path string) (*VariableSpec, error) {
	var s VariableSpec
	if err := readYAML(path, &s); err != nil {
		return nil, err
	}
	if len(s.Groups) == 0 {
		return nil, eris.Errorf("spec: %s declares no variables", path)
	}
	return &s, nil
}

// LoadRecodeSpec reads a value-recoding specification file.
func LoadRecodeSpec(path string) (*RecodeSpec, error) {
	var s RecodeSpec
	if err := readYAML(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadPlotSpec reads a plot specification file.
func LoadPlotSpec(path string) (*PlotSpec, error) {
	var s PlotSpec
	if err := readYAML(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrapf(err, "spec: read %s", path)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return eris.Wrapf(err, "spec: parse %s", path)
	}
	return nil
}
