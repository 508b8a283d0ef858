package swapi

import "strings"

// JoinField joins the label value of every object with a single comma,
// in order, with no trailing separator. An empty list yields "".
func JoinField(objects []LinkedObject, label string) (string, error) {
	var b strings.Builder
	for i, obj := range objects {
		value, ok := obj.Field(label)
		if !ok {
			url, _ := obj.Field("url")
			return "", &MissingFieldError{Index: i, Label: label, URL: url}
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(value)
	}
	return b.String(), nil
}
