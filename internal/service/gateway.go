package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

// PaymentGateway opens hosted payment sessions and authenticates callbacks.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, order *model.Order, eventName string) (token, redirectURL string, err error)
	VerifySignature(orderID, statusCode, grossAmount, signature string) bool
	Name() string
}

// MidtransGateway is the Snap implementation of PaymentGateway.
type MidtransGateway struct {
	serverKey string
	client    snap.Client
}

func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	g := &MidtransGateway{serverKey: serverKey}
	g.client.New(serverKey, env)
	return g
}

func (g *MidtransGateway) Name() string { return "midtrans" }

func (g *MidtransGateway) CreateTransaction(_ context.Context, order *model.Order, eventName string) (string, string, error) {
	items := make([]midtrans.ItemDetails, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, midtrans.ItemDetails{
			ID:       fmt.Sprintf("TT-%d", it.TierID),
			Name:     truncate(eventName+" - "+it.TierName, 50),
			Price:    it.UnitPrice,
			Qty:      int32(it.Quantity),
			Category: "ticket",
		})
	}
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  order.GatewayOrderID(),
			GrossAmt: order.TotalAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: order.BuyerName,
			Email: order.BuyerEmail,
			Phone: order.BuyerPhone,
		},
		Items: &items,
	}
	resp, mErr := g.client.CreateTransaction(req)
	if mErr != nil {
		return "", "", fmt.Errorf("midtrans create transaction: %w", mErr)
	}
	return resp.Token, resp.RedirectURL, nil
}

// VerifySignature checks SHA512(order_id + status_code + gross_amount + server_key).
func (g *MidtransGateway) VerifySignature(orderID, statusCode, grossAmount, signature string) bool {
	want := MidtransSignature(orderID, statusCode, grossAmount, g.serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}

// MidtransSignature computes the notification signature key.
func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
