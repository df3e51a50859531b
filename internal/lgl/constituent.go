package lgl

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ignite/lgl-sync/internal/domain"
)

// search runs a constituent search and returns the matching ids.
func (c *Client) search(ctx context.Context, term string) ([]string, []byte, error) {
	q := url.Values{}
	q.Add("q[]", term)
	body, err := c.call(ctx, http.MethodGet, "/constituents/search.json", q, nil)
	if err != nil {
		return nil, nil, err
	}
	var ids []string
	for _, id := range gjson.GetBytes(body, "items.#.id").Array() {
		if s := id.String(); s != "" {
			ids = append(ids, s)
		}
	}
	return ids, body, nil
}

type emailAddress struct {
	Address            string `json:"address"`
	EmailAddressTypeID int    `json:"email_address_type_id,omitempty"`
	IsPreferred        bool   `json:"is_preferred"`
}

type newConstituent struct {
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	ExternalID     string         `json:"external_constituent_id,omitempty"`
	EmailAddresses []emailAddress `json:"email_addresses,omitempty"`
}

func failure(err error) domain.ConstituentResult {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return domain.ConstituentResult{MatchMethod: domain.MatchNone, Raw: apiErr.raw()}
	}
	return domain.ConstituentResult{MatchMethod: domain.MatchNone, Raw: errorJSON(err.Error())}
}

// SyncConstituent finds the CRM constituent for an order's customer: first
// by email, then by full name when exactly one constituent carries it, and
// otherwise by creating a new one. A failed search stops the process rather
// than risk creating a duplicate.
func (c *Client) SyncConstituent(ctx context.Context, order domain.Order) domain.ConstituentResult {
	email := strings.ToLower(strings.TrimSpace(order.CustomerEmail))

	if email != "" {
		ids, body, err := c.search(ctx, "email="+email)
		if err != nil {
			return failure(err)
		}
		if len(ids) > 0 {
			return domain.ConstituentResult{
				Success:       true,
				ConstituentID: ids[0],
				MatchMethod:   domain.MatchEmail,
				MatchedEmail:  email,
				Raw:           body,
			}
		}
	}

	if name := strings.TrimSpace(order.FullName()); name != "" {
		ids, body, err := c.search(ctx, "name="+name)
		if err != nil {
			return failure(err)
		}
		if len(ids) == 1 {
			return domain.ConstituentResult{
				Success:       true,
				ConstituentID: ids[0],
				MatchMethod:   domain.MatchName,
				Raw:           body,
			}
		}
	}

	payload := newConstituent{
		FirstName:  order.FirstName,
		LastName:   order.LastName,
		ExternalID: order.CustomerID,
	}
	if email != "" {
		payload.EmailAddresses = []emailAddress{{Address: email, IsPreferred: true}}
	}
	body, err := c.call(ctx, http.MethodPost, "/constituents.json", nil, payload)
	if err != nil {
		return failure(err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return domain.ConstituentResult{MatchMethod: domain.MatchNone, Raw: body}
	}
	c.log.Info("created constituent", "constituent_id", id, "email", email)
	return domain.ConstituentResult{
		Success:       true,
		ConstituentID: id,
		MatchMethod:   domain.MatchNone,
		Raw:           body,
	}
}
