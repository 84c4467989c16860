// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package integration

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tombee/bazaar/internal/marketplace"
)

// ParseMetadataFlags converts --metadata KEY=VALUE flags into typed metadata
// using the product schema. Every problem is reported; a bad flag does not
// stop the remaining ones from being checked. Later flags override earlier
// ones for the same key.
func ParseMetadataFlags(flags []string, schema marketplace.MetadataSchema) (marketplace.Metadata, []string) {
	metadata := marketplace.Metadata{}
	var problems []string

	for _, flag := range flags {
		key, value, ok := strings.Cut(flag, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			problems = append(problems, fmt.Sprintf("Invalid metadata format: %q. Expected KEY=VALUE", flag))
			continue
		}

		field, known := schema.Properties[key]
		if !known || field.UIHidden.Hidden() {
			problems = append(problems, fmt.Sprintf("Unknown metadata key: %q. Available keys: %s",
				key, strings.Join(schema.VisibleKeys(), ", ")))
			continue
		}

		parsed, problem := parseMetadataValue(key, value, field)
		if problem != "" {
			problems = append(problems, problem)
			continue
		}
		metadata[key] = parsed
	}

	return metadata, problems
}

func parseMetadataValue(key, value string, field marketplace.MetadataField) (any, string) {
	switch field.Type {
	case marketplace.FieldNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Sprintf("Metadata %q must be a number, got %q", key, value)
		}
		if field.Minimum != nil && n < *field.Minimum {
			return nil, fmt.Sprintf("Metadata %q must be at least %s, got %s", key, formatNumber(*field.Minimum), formatNumber(n))
		}
		if field.Maximum != nil && n > *field.Maximum {
			return nil, fmt.Sprintf("Metadata %q must be at most %s, got %s", key, formatNumber(*field.Maximum), formatNumber(n))
		}
		return n, ""

	case marketplace.FieldBoolean:
		switch value {
		case "true":
			return true, ""
		case "false":
			return false, ""
		}
		return nil, fmt.Sprintf("Metadata %q must be true or false, got %q", key, value)

	case marketplace.FieldArray:
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if items == nil {
			items = []string{}
		}
		if allowed := arrayOptions(field); len(allowed) > 0 {
			for _, item := range items {
				if !slices.Contains(allowed, item) {
					return nil, fmt.Sprintf("Metadata %q contains invalid value %q. Must be one of: %s",
						key, item, strings.Join(allowed, ", "))
				}
			}
		}
		return items, ""

	default:
		if field.UIControl == marketplace.ControlSelect {
			if allowed := field.OptionValues(); len(allowed) > 0 && !slices.Contains(allowed, value) {
				return nil, fmt.Sprintf("Metadata %q must be one of: %s", key, strings.Join(allowed, ", "))
			}
		}
		return value, ""
	}
}

// arrayOptions returns the allowed values of a multi-select array field.
func arrayOptions(field marketplace.MetadataField) []string {
	if field.UIControl == marketplace.ControlMultiSelect {
		if values := field.OptionValues(); len(values) > 0 {
			return values
		}
	}
	if field.Items != nil {
		return field.Items.OptionValues()
	}
	return nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// MissingRequiredMetadata returns the required keys that are absent or empty,
// in schema order. Hidden keys are filled by the server and never reported.
func MissingRequiredMetadata(metadata marketplace.Metadata, schema marketplace.MetadataSchema) []string {
	var missing []string
	for _, key := range schema.Required {
		if field, ok := schema.Properties[key]; ok && field.UIHidden.Hidden() {
			continue
		}
		if isEmptyMetadataValue(metadata[key]) {
			missing = append(missing, key)
		}
	}
	return missing
}

func isEmptyMetadataValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	}
	return false
}

// MissingMetadataError reports required metadata keys the user did not supply.
type MissingMetadataError struct {
	Keys   []string
	Schema marketplace.MetadataSchema
}

func (e *MissingMetadataError) Error() string {
	return "Missing required metadata: " + strings.Join(e.Keys, ", ")
}

// IsUserVisible reports that the error is shown to the user.
func (e *MissingMetadataError) IsUserVisible() bool { return true }

// UserMessage returns the error text.
func (e *MissingMetadataError) UserMessage() string { return e.Error() }

// Suggestion lists one --metadata flag per missing key.
func (e *MissingMetadataError) Suggestion() string {
	var b strings.Builder
	b.WriteString("Provide the missing values with:")
	for _, key := range e.Keys {
		fmt.Fprintf(&b, "\n  --metadata %s=%s", key, metadataPlaceholder(e.Schema.Properties[key]))
	}
	return b.String()
}

func metadataPlaceholder(field marketplace.MetadataField) string {
	if values := field.OptionValues(); len(values) > 0 {
		return "<" + strings.Join(values, "|") + ">"
	}
	if field.Type == "" {
		return "<value>"
	}
	return "<" + field.Type + ">"
}
