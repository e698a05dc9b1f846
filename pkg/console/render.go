package console

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// RenderStruct renders a Go struct to console output using reflection and
// struct tags, so the metrics record and scorecard can be dumped in
// verbose mode without a bespoke formatter per type.
//
// Struct tags:
// - `console:"title:My Title"` - Sets the title for a section
// - `console:"header:Column Name"` - Sets the column header name for table columns
// - `console:"omitempty"` - Skips zero values
// - `console:"-"` - Skips the field entirely
func RenderStruct(v interface{}) string {
	var output strings.Builder
	renderValue(reflect.ValueOf(v), "", &output, 0)
	return output.String()
}

// renderValue recursively renders a reflect.Value to the output builder
func renderValue(val reflect.Value, title string, output *strings.Builder, depth int) {
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}

	switch val.Kind() {
	case reflect.Struct:
		renderStruct(val, title, output, depth)
	case reflect.Slice, reflect.Array:
		renderSlice(val, title, output, depth)
	case reflect.Map:
		renderMap(val, title, output, depth)
	}
}

// renderStruct renders a struct as markdown-style headers with key-value pairs
func renderStruct(val reflect.Value, title string, output *strings.Builder, depth int) {
	typ := val.Type()

	if title != "" {
		if depth == 0 {
			output.WriteString(fmt.Sprintf("# %s\n\n", title))
		} else {
			output.WriteString(fmt.Sprintf("%s %s\n\n", strings.Repeat("#", depth+1), title))
		}
	}

	maxFieldLen := 0
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := parseConsoleTag(fieldType.Tag.Get("console"))

		if tag.skip || (tag.omitempty && isZeroValue(field)) {
			continue
		}

		fieldName := fieldType.Name
		if tag.header != "" {
			fieldName = tag.header
		}

		if len(fieldName) > maxFieldLen {
			maxFieldLen = len(fieldName)
		}
	}

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		tag := parseConsoleTag(fieldType.Tag.Get("console"))
		if tag.skip {
			continue
		}
		if tag.omitempty && isZeroValue(field) {
			continue
		}

		fieldName := fieldType.Name
		if tag.header != "" {
			fieldName = tag.header
		}

		if field.Kind() == reflect.Struct && field.Type().String() != "time.Time" {
			subTitle := tag.title
			if subTitle == "" {
				subTitle = fieldName
			}
			renderValue(field, subTitle, output, depth+1)
		} else if field.Kind() == reflect.Slice || field.Kind() == reflect.Array {
			sliceTitle := tag.title
			if sliceTitle == "" {
				sliceTitle = fieldName
			}
			renderValue(field, sliceTitle, output, depth+1)
		} else if field.Kind() == reflect.Map {
			mapTitle := tag.title
			if mapTitle == "" {
				mapTitle = fieldName
			}
			renderValue(field, mapTitle, output, depth+1)
		} else {
			paddedName := fmt.Sprintf("%-*s", maxFieldLen, fieldName)
			output.WriteString(fmt.Sprintf("  %s: %v\n", paddedName, formatFieldValueWithTag(field, tag)))
		}
	}

	output.WriteString("\n")
}

// renderSlice renders a slice as a table using the console table renderer
func renderSlice(val reflect.Value, title string, output *strings.Builder, depth int) {
	if val.Len() == 0 {
		return
	}

	if title != "" {
		if depth == 0 {
			output.WriteString(fmt.Sprintf("# %s\n\n", title))
		} else {
			output.WriteString(fmt.Sprintf("%s %s\n\n", strings.Repeat("#", depth+1), title))
		}
	}

	elemType := val.Type().Elem()
	for elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}

	if elemType.Kind() == reflect.Struct {
		config := buildTableConfig(val, title)
		output.WriteString(RenderTable(config))
	} else {
		for i := 0; i < val.Len(); i++ {
			elem := val.Index(i)
			output.WriteString(fmt.Sprintf("  • %v\n", formatFieldValue(elem)))
		}
		output.WriteString("\n")
	}
}

// renderMap renders a map as markdown-style headers
func renderMap(val reflect.Value, title string, output *strings.Builder, depth int) {
	if val.Len() == 0 {
		return
	}

	if title != "" {
		if depth == 0 {
			output.WriteString(fmt.Sprintf("# %s\n\n", title))
		} else {
			output.WriteString(fmt.Sprintf("%s %s\n\n", strings.Repeat("#", depth+1), title))
		}
	}

	for _, key := range val.MapKeys() {
		mapValue := val.MapIndex(key)
		output.WriteString(fmt.Sprintf("  %-18s %v\n", fmt.Sprintf("%v:", key), formatFieldValue(mapValue)))
	}
	output.WriteString("\n")
}

// buildTableConfig builds a TableConfig from a slice of structs
func buildTableConfig(val reflect.Value, title string) TableConfig {
	config := TableConfig{Title: ""}

	if val.Len() == 0 {
		return config
	}

	elemType := val.Type().Elem()
	for elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}

	var headers []string
	var fieldIndices []int
	var fieldTags []consoleTag

	for i := 0; i < elemType.NumField(); i++ {
		field := elemType.Field(i)
		tag := parseConsoleTag(field.Tag.Get("console"))

		if tag.skip {
			continue
		}

		headerName := field.Name
		if tag.header != "" {
			headerName = tag.header
		}

		headers = append(headers, headerName)
		fieldIndices = append(fieldIndices, i)
		fieldTags = append(fieldTags, tag)
	}

	config.Headers = headers

	for i := 0; i < val.Len(); i++ {
		elem := val.Index(i)
		for elem.Kind() == reflect.Ptr {
			if elem.IsNil() {
				break
			}
			elem = elem.Elem()
		}

		if elem.Kind() != reflect.Struct {
			continue
		}

		var row []string
		for j, fieldIdx := range fieldIndices {
			field := elem.Field(fieldIdx)
			row = append(row, formatFieldValueWithTag(field, fieldTags[j]))
		}
		config.Rows = append(config.Rows, row)
	}

	return config
}

// consoleTag represents a parsed console struct tag
type consoleTag struct {
	title      string
	header     string
	format     string
	defaultVal string
	maxLen     int
	omitempty  bool
	skip       bool
}

// parseConsoleTag parses the console struct tag
func parseConsoleTag(tag string) consoleTag {
	result := consoleTag{}

	if tag == "-" {
		result.skip = true
		return result
	}

	parts := strings.Split(tag, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "omitempty" {
			result.omitempty = true
		} else if strings.HasPrefix(part, "title:") {
			result.title = strings.TrimPrefix(part, "title:")
		} else if strings.HasPrefix(part, "header:") {
			result.header = strings.TrimPrefix(part, "header:")
		} else if strings.HasPrefix(part, "format:") {
			result.format = strings.TrimPrefix(part, "format:")
		} else if strings.HasPrefix(part, "default:") {
			result.defaultVal = strings.TrimPrefix(part, "default:")
		} else if strings.HasPrefix(part, "maxlen:") {
			maxLenStr := strings.TrimPrefix(part, "maxlen:")
			if n, err := strconv.Atoi(maxLenStr); err == nil {
				result.maxLen = n
			}
		}
	}

	return result
}

// isZeroValue checks if a reflect.Value is the zero value for its type
func isZeroValue(val reflect.Value) bool {
	if !val.IsValid() {
		return true
	}

	if val.Type().String() == "time.Time" {
		if val.CanInterface() {
			if t, ok := val.Interface().(time.Time); ok {
				return t.IsZero()
			}
		}
		return false
	}

	switch val.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return val.Len() == 0
	case reflect.Bool:
		return !val.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return val.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return val.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return val.Float() == 0
	case reflect.Interface, reflect.Ptr:
		return val.IsNil()
	}

	return false
}

// formatFieldValue formats a reflect.Value as a string for display
func formatFieldValue(val reflect.Value) string {
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return "-"
		}
		val = val.Elem()
	}

	if !val.IsValid() {
		return "-"
	}

	if isZeroValue(val) {
		if val.Kind() == reflect.String {
			return "-"
		}
		if val.Kind() >= reflect.Int && val.Kind() <= reflect.Float64 {
			if val.CanInterface() {
				return fmt.Sprintf("%v", val.Interface())
			}
			switch val.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				return fmt.Sprintf("%d", val.Int())
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				return fmt.Sprintf("%d", val.Uint())
			case reflect.Float32, reflect.Float64:
				return fmt.Sprintf("%f", val.Float())
			}
		}
		return "-"
	}

	if val.Type().String() == "time.Time" {
		if val.CanInterface() {
			if timeVal, ok := val.Interface().(time.Time); ok {
				return timeVal.Format("2006-01-02 15:04:05")
			}
		}
		stringMethod := val.MethodByName("String")
		if stringMethod.IsValid() {
			result := stringMethod.Call(nil)
			if len(result) > 0 {
				return result[0].String()
			}
		}
		return val.Type().String()
	}

	if !val.CanInterface() {
		switch val.Kind() {
		case reflect.Bool:
			return fmt.Sprintf("%t", val.Bool())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return fmt.Sprintf("%d", val.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return fmt.Sprintf("%d", val.Uint())
		case reflect.Float32, reflect.Float64:
			return fmt.Sprintf("%f", val.Float())
		case reflect.String:
			return val.String()
		default:
			return val.Type().String()
		}
	}

	return fmt.Sprintf("%v", val.Interface())
}

// formatFieldValueWithTag formats a reflect.Value as a string for display,
// applying the format/default/maxlen settings from a console tag. The
// formats handled are "number", "filesize", "percent" and "score" — unlike
// the teacher's workflow-cost renderer, nothing here tracks LLM spend.
func formatFieldValueWithTag(val reflect.Value, tag consoleTag) string {
	baseValue := formatFieldValue(val)

	if tag.defaultVal != "" && isZeroValue(val) {
		baseValue = tag.defaultVal
	}

	if tag.format != "" && baseValue != "-" {
		switch tag.format {
		case "number":
			if val.CanInterface() {
				switch v := val.Interface().(type) {
				case int:
					return FormatNumber(v)
				case int64:
					return FormatNumber(int(v))
				case int32:
					return FormatNumber(int(v))
				case uint:
					return FormatNumber(int(v))
				case uint64:
					return FormatNumber(int(v))
				case uint32:
					return FormatNumber(int(v))
				}
			}
			if val.Kind() >= reflect.Int && val.Kind() <= reflect.Uint64 {
				return FormatNumber(int(val.Int()))
			}
		case "filesize":
			if val.CanInterface() {
				switch v := val.Interface().(type) {
				case int:
					return FormatFileSize(int64(v))
				case int64:
					return FormatFileSize(v)
				case int32:
					return FormatFileSize(int64(v))
				case uint:
					return FormatFileSize(int64(v))
				case uint64:
					return FormatFileSize(int64(v))
				case uint32:
					return FormatFileSize(int64(v))
				case float64:
					return FormatFileSize(int64(v * 1024 * 1024))
				}
			}
			if val.Kind() >= reflect.Int && val.Kind() <= reflect.Int64 {
				return FormatFileSize(val.Int())
			}
			if val.Kind() >= reflect.Uint && val.Kind() <= reflect.Uint64 {
				return FormatFileSize(int64(val.Uint()))
			}
		case "percent":
			if val.CanInterface() {
				switch v := val.Interface().(type) {
				case float64:
					return fmt.Sprintf("%.1f%%", v)
				case float32:
					return fmt.Sprintf("%.1f%%", v)
				}
			}
		case "score":
			if val.CanInterface() {
				if v, ok := val.Interface().(float64); ok {
					if formatted := FormatScoreOrEmpty(v); formatted != "" {
						return formatted
					}
				}
			}
		}
	}

	if tag.maxLen > 0 && len(baseValue) > tag.maxLen {
		if tag.maxLen > 3 {
			baseValue = baseValue[:tag.maxLen-3] + "..."
		} else {
			baseValue = baseValue[:tag.maxLen]
		}
	}

	return baseValue
}

// FormatNumber formats large counts in a human-readable way (e.g., "1.00k", "15.0k", "1.12M") —
// used for fields like lines-of-code or issue counts where a raw integer is hard to scan.
func FormatNumber(n int) string {
	if n == 0 {
		return "0"
	}

	f := float64(n)

	if f < 1000 {
		return fmt.Sprintf("%d", n)
	} else if f < 1000000 {
		k := f / 1000
		if k >= 100 {
			return fmt.Sprintf("%.0fk", k)
		} else if k >= 10 {
			return fmt.Sprintf("%.1fk", k)
		}
		return fmt.Sprintf("%.2fk", k)
	} else if f < 1000000000 {
		m := f / 1000000
		if m >= 100 {
			return fmt.Sprintf("%.0fM", m)
		} else if m >= 10 {
			return fmt.Sprintf("%.1fM", m)
		}
		return fmt.Sprintf("%.2fM", m)
	}
	b := f / 1000000000
	if b >= 100 {
		return fmt.Sprintf("%.0fB", b)
	} else if b >= 10 {
		return fmt.Sprintf("%.1fB", b)
	}
	return fmt.Sprintf("%.2fB", b)
}
