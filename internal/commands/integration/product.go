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
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tombee/bazaar/internal/cli/prompt"
	"github.com/tombee/bazaar/internal/marketplace"
)

// ParseIntegrationArg splits "<integration>[/<product>]".
func ParseIntegrationArg(arg string) (integrationSlug, productSlug string) {
	integrationSlug, productSlug, _ = strings.Cut(arg, "/")
	return integrationSlug, productSlug
}

// ambiguousProductError lists every product of an integration when none was
// chosen and no prompt is possible.
func ambiguousProductError(integrationSlug string, products []marketplace.Product) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Integration %q has multiple products. Specify one with:\n\n", integrationSlug)
	for _, p := range products {
		fmt.Fprintf(&b, "  %s/%s\n", integrationSlug, p.Slug)
	}
	fmt.Fprintf(&b, "\nExample: bazaar integration add %s/%s", integrationSlug, products[0].Slug)
	return errors.New(b.String())
}

// SelectProduct picks the product to provision: the one matching slug when
// given, the only product when there is one, or the user's choice otherwise.
func SelectProduct(ctx context.Context, p prompt.Prompter, products []marketplace.Product, slug string) (*marketplace.Product, error) {
	if len(products) == 0 {
		return nil, errors.New("no products available")
	}

	if slug != "" {
		for i := range products {
			if products[i].Slug == slug {
				return &products[i], nil
			}
		}
		slugs := make([]string, len(products))
		for i, prod := range products {
			slugs[i] = prod.Slug
		}
		return nil, fmt.Errorf("Product %q not found. Available products: %s", slug, strings.Join(slugs, ", "))
	}

	if len(products) == 1 {
		return &products[0], nil
	}

	labels := make([]string, len(products))
	for i, prod := range products {
		labels[i] = productLabel(prod)
	}
	choice, err := p.Select(ctx, "Select a product", labels)
	if err != nil {
		return nil, err
	}
	for i, label := range labels {
		if label == choice {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("unknown product selection %q", choice)
}

func productLabel(p marketplace.Product) string {
	if p.Name == "" || p.Name == p.Slug {
		return p.Slug
	}
	return fmt.Sprintf("%s (%s)", p.Name, p.Slug)
}
