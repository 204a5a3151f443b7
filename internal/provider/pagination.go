package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/pod-storefront/internal/apperr"
)

// Policy decides which response shapes a catalog listing may take. The
// provider has been observed returning a bare array, a paginated envelope,
// and an array paged through Link headers, so the shape is configuration
// rather than an assumption.
type Policy string

const (
	// PolicyAuto detects the shape of every response.
	PolicyAuto Policy = "auto"
	// PolicyFlat expects a bare array holding the complete catalog.
	PolicyFlat Policy = "flat"
	// PolicyEnvelope expects {data, current_page, last_page, ...}.
	PolicyEnvelope Policy = "envelope"
	// PolicyLink expects a bare array with a rel="next" Link header.
	PolicyLink Policy = "link"
)

// ParsePolicy maps a config value onto a Policy, defaulting to auto.
func ParsePolicy(s string) Policy {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyFlat:
		return PolicyFlat
	case PolicyEnvelope:
		return PolicyEnvelope
	case PolicyLink:
		return PolicyLink
	default:
		return PolicyAuto
	}
}

// Page is one page of a listing in a shape-independent form. NextCursor is
// opaque to callers; pass it back to fetch the following page.
type Page[T any] struct {
	Items      []T
	HasNext    bool
	NextCursor string
	Total      int // -1 when the provider did not say
}

type envelope struct {
	Data        json.RawMessage `json:"data"`
	Total       *int            `json:"total"`
	PerPage     *int            `json:"per_page"`
	CurrentPage *int            `json:"current_page"`
	LastPage    *int            `json:"last_page"`
	NextPageURL *string         `json:"next_page_url"`
}

// decodeProductPage turns a listing response into a Page according to policy.
// requested is the page number that was asked for (1 for the first page).
func decodeProductPage(body []byte, header http.Header, policy Policy, requested int) (*Page[Product], error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, apperr.InvalidResponse()
	}

	next := parseLinkNext(header.Get("Link"))

	switch body[0] {
	case '[':
		if policy == PolicyEnvelope {
			return nil, apperr.InvalidResponse()
		}
		items, err := decodeProducts(body)
		if err != nil {
			return nil, err
		}
		page := &Page[Product]{Items: items, Total: -1}
		if policy != PolicyFlat && next != "" {
			page.HasNext = true
			page.NextCursor = next
		}
		if !page.HasNext && requested == 1 {
			page.Total = len(items)
		}
		return page, nil

	case '{':
		if policy == PolicyFlat || policy == PolicyLink {
			return nil, apperr.InvalidResponse()
		}
		var env envelope
		if err := json.Unmarshal(body, &env); err != nil || len(env.Data) == 0 {
			return nil, apperr.InvalidResponse()
		}
		items, err := decodeProducts(env.Data)
		if err != nil {
			return nil, err
		}
		page := &Page[Product]{Items: items, Total: -1}
		if env.Total != nil {
			page.Total = *env.Total
		}

		current := requested
		if env.CurrentPage != nil {
			current = *env.CurrentPage
		}
		switch {
		case env.LastPage != nil:
			page.HasNext = current < *env.LastPage
		case env.NextPageURL != nil:
			page.HasNext = *env.NextPageURL != ""
		case env.Total != nil && env.PerPage != nil && *env.PerPage > 0:
			page.HasNext = current*(*env.PerPage) < *env.Total
		case next != "":
			page.HasNext = true
		}
		if page.HasNext {
			page.NextCursor = strconv.Itoa(current + 1)
		}
		return page, nil
	}

	return nil, apperr.InvalidResponse()
}

func decodeProducts(data []byte) ([]Product, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, apperr.InvalidResponse()
	}
	items := make([]Product, 0, len(raws))
	for _, raw := range raws {
		var p Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, apperr.InvalidResponse()
		}
		p.Raw = append(json.RawMessage(nil), raw...)
		items = append(items, p)
	}
	return items, nil
}

// parseLinkNext extracts the rel="next" target of an RFC 8288 Link header.
func parseLinkNext(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.TrimSpace(param)
			if !strings.HasPrefix(strings.ToLower(param), "rel=") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(param[4:], `"`)) {
				if strings.EqualFold(rel, "next") {
					return strings.Trim(target, "<>")
				}
			}
		}
	}
	return ""
}

// WalkProducts visits every page of a shop's catalog in order. It stops at
// the first error from the client or from fn, and refuses to loop forever
// when the provider keeps advertising a next page.
func WalkProducts(ctx context.Context, c Client, shopID string, maxPages int, fn func(page *Page[Product]) error) error {
	seen := make(map[string]struct{})
	cursor := ""
	for n := 1; ; n++ {
		if maxPages > 0 && n > maxPages {
			return apperr.NewProviderError(http.StatusBadGateway, fmt.Sprintf("pagination exceeded %d pages", maxPages))
		}
		page, err := c.GetProducts(ctx, shopID, cursor)
		if err != nil {
			return err
		}
		if err := fn(page); err != nil {
			return err
		}
		if !page.HasNext || page.NextCursor == "" {
			return nil
		}
		if _, dup := seen[page.NextCursor]; dup {
			return apperr.NewProviderError(http.StatusBadGateway, "pagination cursor repeated")
		}
		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}
}

// ListAllProducts collects every page of a shop's catalog.
func ListAllProducts(ctx context.Context, c Client, shopID string, maxPages int) ([]Product, error) {
	var all []Product
	err := WalkProducts(ctx, c, shopID, maxPages, func(page *Page[Product]) error {
		all = append(all, page.Items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}
