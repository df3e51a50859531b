package lgl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/ignite/lgl-sync/internal/domain"
)

// orderNamespace scopes payment idempotency keys to store orders.
var orderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://lgl-sync/orders"))

// PaymentKey returns the deterministic idempotency key for an order's
// payment. Retries of the same order always reuse it.
func PaymentKey(orderID string) string {
	return uuid.NewSHA1(orderNamespace, []byte(orderID)).String()
}

type newGift struct {
	ExternalID     string  `json:"external_id"`
	GiftTypeID     int     `json:"gift_type_id,omitempty"`
	CampaignID     int     `json:"campaign_id,omitempty"`
	ReceivedAmount float64 `json:"received_amount"`
	ReceivedDate   string  `json:"received_date,omitempty"`
	PaymentType    string  `json:"payment_type_name,omitempty"`
	Note           string  `json:"note,omitempty"`
}

func paymentFailure(err error) domain.PaymentResult {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return domain.PaymentResult{Raw: apiErr.raw()}
	}
	return domain.PaymentResult{Raw: errorJSON(err.Error())}
}

func giftNote(order domain.Order) string {
	names := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		if it.Quantity > 1 {
			names = append(names, fmt.Sprintf("%s x%d", it.Name, it.Quantity))
		} else {
			names = append(names, it.Name)
		}
	}
	note := "Store order " + order.ID
	if order.TransactionID != "" {
		note += " (transaction " + order.TransactionID + ")"
	}
	if len(names) > 0 {
		note += ": " + strings.Join(names, ", ")
	}
	return note
}

// CreatePayment records the order total as a gift on the constituent.
func (c *Client) CreatePayment(ctx context.Context, constituentID string, order domain.Order) domain.PaymentResult {
	if constituentID == "" {
		return domain.PaymentResult{Raw: errorJSON("no constituent id")}
	}

	key := PaymentKey(order.ID)
	gift := newGift{
		ExternalID:     key,
		GiftTypeID:     c.giftTypeID,
		CampaignID:     c.campaignID,
		ReceivedAmount: order.Total,
		PaymentType:    order.PaymentMethod,
		Note:           giftNote(order),
	}
	if order.PaidAt != nil {
		gift.ReceivedDate = order.PaidAt.UTC().Format("2006-01-02")
	}

	path := "/constituents/" + url.PathEscape(constituentID) + "/gifts.json"
	body, err := c.call(withIdempotencyKey(ctx, key), http.MethodPost, path, nil, gift)
	if err != nil {
		return paymentFailure(err)
	}
	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return domain.PaymentResult{Raw: body}
	}
	c.log.Info("recorded payment", "order_id", order.ID, "constituent_id", constituentID, "payment_id", id)
	return domain.PaymentResult{Success: true, PaymentID: id, Raw: body}
}
