package labtrend

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// DefaultCategory is assigned to parameters no category lists.
const DefaultCategory = "Other"

//go:embed default_categories.yaml
var defaultCategoriesYAML []byte

// Category names a group of parameters.
type Category struct {
	Name       string
	Parameters []string
}

// CategoryTable maps parameter names to categories by exact name match.
// The zero value resolves every name to DefaultCategory.
type CategoryTable struct {
	categories []Category
	index      map[string]string
}

// NewCategoryTable builds a table. When a parameter is listed under several
// categories, the first category wins.
func NewCategoryTable(categories []Category) CategoryTable {
	t := CategoryTable{
		categories: make([]Category, 0, len(categories)),
		index:      make(map[string]string),
	}
	for _, c := range categories {
		params := append([]string(nil), c.Parameters...)
		t.categories = append(t.categories, Category{Name: c.Name, Parameters: params})
		for _, p := range params {
			if _, ok := t.index[p]; !ok {
				t.index[p] = c.Name
			}
		}
	}
	return t
}

// Resolve returns the category listing name, or DefaultCategory and false.
func (t CategoryTable) Resolve(name string) (string, bool) {
	if c, ok := t.index[name]; ok {
		return c, true
	}
	return DefaultCategory, false
}

// Categories returns the categories in declaration order.
func (t CategoryTable) Categories() []Category {
	out := make([]Category, len(t.categories))
	for i, c := range t.categories {
		out[i] = Category{Name: c.Name, Parameters: append([]string(nil), c.Parameters...)}
	}
	return out
}

// LoadCategoryTable reads a YAML mapping of category name to parameter list.
// Declaration order is preserved.
func LoadCategoryTable(r io.Reader) (CategoryTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return CategoryTable{}, fmt.Errorf("%w: %w", ErrInvalidCategoryTable, err)
	}

	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return CategoryTable{}, fmt.Errorf("%w: %w", ErrInvalidCategoryTable, err)
	}

	categories := make([]Category, 0, len(doc))
	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok || name == "" {
			return CategoryTable{}, fmt.Errorf("%w: category name %v is not a string", ErrInvalidCategoryTable, item.Key)
		}

		var params []string
		switch v := item.Value.(type) {
		case nil:
		case []interface{}:
			for _, p := range v {
				if p == nil {
					continue
				}
				params = append(params, fmt.Sprint(p))
			}
		default:
			return CategoryTable{}, fmt.Errorf("%w: category %q must list parameter names", ErrInvalidCategoryTable, name)
		}
		categories = append(categories, Category{Name: name, Parameters: params})
	}

	return NewCategoryTable(categories), nil
}

// DefaultCategoryTable returns the built-in table of common blood panels.
func DefaultCategoryTable() CategoryTable {
	t, err := LoadCategoryTable(bytes.NewReader(defaultCategoriesYAML))
	if err != nil {
		panic(fmt.Sprintf("labtrend: embedded category table: %v", err))
	}
	return t
}
