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
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	maxResourceNameLength = 128
	resourceSuffixLength  = 8
	defaultResourceBase   = "resource"
)

var (
	validResourceName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	invalidNameChars  = regexp.MustCompile(`[^a-z0-9_-]+`)
	repeatedDashes    = regexp.MustCompile(`-{2,}`)
)

// resourceNameSpace namespaces generated-name UUIDs.
var resourceNameSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://bazaar.dev/resource-names"))

// ResolveResourceName returns the validated explicit name, or a generated one
// when nameArg is empty. The result depends only on its inputs.
func ResolveResourceName(productSlug, nameArg, seed string) (string, error) {
	if nameArg == "" {
		return GenerateResourceName(productSlug, seed), nil
	}

	name := strings.TrimSpace(nameArg)
	switch {
	case name == "":
		return "", errors.New("Resource name cannot be empty")
	case len(name) > maxResourceNameLength:
		return "", fmt.Errorf("Resource name %q is too long. Use at most %d characters", name, maxResourceNameLength)
	case !validResourceName.MatchString(name):
		return "", fmt.Errorf("Resource name %q is invalid. Use only letters, digits, \"-\" and \"_\"", name)
	}
	return name, nil
}

// GenerateResourceName derives "<product>-<8 hex>" from the product slug and
// seed. The same inputs always produce the same name.
func GenerateResourceName(productSlug, seed string) string {
	base := strings.ToLower(strings.TrimSpace(foldAccents(productSlug)))
	base = invalidNameChars.ReplaceAllString(base, "-")
	base = repeatedDashes.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-_")
	if base == "" {
		base = defaultResourceBase
	}
	if limit := maxResourceNameLength - resourceSuffixLength - 1; len(base) > limit {
		base = strings.TrimRight(base[:limit], "-_")
	}

	id := uuid.NewSHA1(resourceNameSpace, []byte(productSlug+"/"+seed))
	suffix := strings.ReplaceAll(id.String(), "-", "")[:resourceSuffixLength]
	return base + "-" + suffix
}

// foldAccents strips combining marks so "Café" becomes "Cafe".
func foldAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
