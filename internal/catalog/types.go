package catalog

import (
	"strconv"
	"strings"
)

// AttrType enumerates the value kinds an attribute can hold.
type AttrType string

// Supported attribute types.
const (
	TypeString AttrType = "string"
	TypeNumber AttrType = "number"
	TypeImage  AttrType = "image"
)

// NameAttr is the attribute every item carries and every test session grades.
const NameAttr = "name"

// Value is a tagged attribute value. Image values keep their reference in Str.
type Value struct {
	Type AttrType `json:"type"`
	Str  string   `json:"str,omitempty"`
	Num  float64  `json:"num,omitempty"`
}

func StringValue(s string) Value  { return Value{Type: TypeString, Str: s} }
func NumberValue(n float64) Value { return Value{Type: TypeNumber, Num: n} }
func ImageValue(ref string) Value { return Value{Type: TypeImage, Str: ref} }

// String renders the value the way it is shown to players and fed to the matcher.
func (v Value) String() string {
	if v.Type == TypeNumber {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Str
}

// Number returns the numeric form of the value. String values are parsed leniently.
func (v Value) Number() (float64, bool) {
	switch v.Type {
	case TypeNumber:
		return v.Num, true
	case TypeString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Item is one quizzable entity inside a package.
type Item struct {
	ID       string
	Name     string
	Weight   int
	Accepted []string
	Attrs    map[string]Value
}

// EffectiveWeight is the sampling weight, never below 1.
func (it Item) EffectiveWeight() int {
	if it.Weight < 1 {
		return 1
	}
	return it.Weight
}

// Value looks up an attribute by name. The name attribute maps to Item.Name.
func (it Item) Value(attr string) (Value, bool) {
	if attr == NameAttr {
		return StringValue(it.Name), it.Name != ""
	}
	v, ok := it.Attrs[attr]
	return v, ok
}

// Attribute describes an item field and its quiz roles.
type Attribute struct {
	Name     string   `json:"name"`
	Title    string   `json:"title"`
	Type     AttrType `json:"type"`
	Question bool     `json:"question"`
	Answer   bool     `json:"answer"`
}

// Gradeable reports whether free-text answers can be checked against this attribute.
func (a Attribute) Gradeable() bool {
	return a.Type == TypeString || a.Type == TypeNumber
}

// DivisionOption is one discrete value of a division.
type DivisionOption struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Division is a categorical grouping of items, e.g. continent.
type Division struct {
	Name    string           `json:"name"`
	Title   string           `json:"title"`
	Options []DivisionOption `json:"options"`
}

// Package is a fully materialized content bundle.
type Package struct {
	ID         string      `json:"_id"`
	Name       string      `json:"name"`
	Title      string      `json:"title"`
	Items      []Item      `json:"items"`
	Attributes []Attribute `json:"attributes"`
	Divisions  []Division  `json:"divisions,omitempty"`
	TestTime   int         `json:"test_time,omitempty"`
	Ranged     string      `json:"ranged,omitempty"`
}

// Attribute returns the schema entry for name. The name attribute is implicit
// when a package does not declare it.
func (p *Package) Attribute(name string) (Attribute, bool) {
	for _, a := range p.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	if name == NameAttr {
		return Attribute{Name: NameAttr, Title: "Name", Type: TypeString, Question: true, Answer: true}, true
	}
	return Attribute{}, false
}

// Division returns the division with the given name.
func (p *Package) Division(name string) (Division, bool) {
	for _, d := range p.Divisions {
		if d.Name == name {
			return d, true
		}
	}
	return Division{}, false
}

// Item returns the item with the given name.
func (p *Package) Item(name string) (Item, bool) {
	for _, it := range p.Items {
		if it.Name == name {
			return it, true
		}
	}
	return Item{}, false
}

// QuestionAttributes lists attributes eligible as quiz prompts.
func (p *Package) QuestionAttributes() []Attribute {
	var out []Attribute
	for _, a := range p.Attributes {
		if a.Question {
			out = append(out, a)
		}
	}
	return out
}

// AnswerAttributes lists attributes eligible as quiz answers.
func (p *Package) AnswerAttributes() []Attribute {
	var out []Attribute
	for _, a := range p.Attributes {
		if a.Answer {
			out = append(out, a)
		}
	}
	return out
}

// Normalize retypes raw item values according to the attribute schema and
// fills in default weights. Values that cannot be coerced are left as decoded.
func (p *Package) Normalize() {
	for i := range p.Items {
		it := &p.Items[i]
		if it.Weight < 1 {
			it.Weight = 1
		}
		for _, attr := range p.Attributes {
			v, ok := it.Attrs[attr.Name]
			if !ok {
				continue
			}
			switch attr.Type {
			case TypeNumber:
				if n, ok := v.Number(); ok {
					it.Attrs[attr.Name] = NumberValue(n)
				}
			case TypeImage:
				it.Attrs[attr.Name] = ImageValue(v.String())
			case TypeString:
				if v.Type != TypeString {
					it.Attrs[attr.Name] = StringValue(v.String())
				}
			}
		}
	}
}
