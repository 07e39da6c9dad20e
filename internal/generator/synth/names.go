package synth

import "strings"

// initialisms that stay fully capitalized in accessor names
var initialisms = map[string]string{
	"id":   "ID",
	"url":  "URL",
	"uri":  "URI",
	"uuid": "UUID",
	"api":  "API",
	"http": "HTTP",
	"json": "JSON",
	"xml":  "XML",
	"html": "HTML",
	"sql":  "SQL",
	"ip":   "IP",
	"tcp":  "TCP",
	"udp":  "UDP",
}

// exportName converts a snake_case field name to the PascalCase accessor
// stem, keeping common initialisms fully capitalized.
func exportName(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		if upper, ok := initialisms[strings.ToLower(part)]; ok {
			parts[i] = upper
		} else {
			parts[i] = strings.ToUpper(part[0:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// tagSuffix converts a revision tag to the accessor suffix used by escape
// hatches and constructors, e.g. "v1" -> "V1", "v2beta" -> "V2beta".
func tagSuffix(tag string) string {
	if tag == "" {
		return ""
	}
	return strings.ToUpper(tag[0:1]) + tag[1:]
}

// wrapperName derives the unified wrapper type name from a merged message
// path, flattening nesting: "Order.LineItem" -> "OrderLineItem".
func wrapperName(message string) string {
	parts := strings.Split(message, ".")
	for i, part := range parts {
		parts[i] = exportName(part)
	}
	return strings.Join(parts, "")
}
