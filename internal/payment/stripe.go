package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/pkg/global"
)

const intentTimeout = 15 * time.Second

// IntentCreator creates a payment intent at the processor.
type IntentCreator func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)

// Gateway turns an amount in major units into a processor client secret.
type Gateway struct {
	create   IntentCreator
	currency string
	breaker  *gobreaker.CircuitBreaker[string]
	logger   *zap.Logger
}

func NewStripeGateway(secret, currency string, logger *zap.Logger) *Gateway {
	var create IntentCreator
	if secret != "" {
		client := paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secret}
		create = client.New
	}
	return NewGateway(create, currency, logger)
}

func NewGateway(create IntentCreator, currency string, logger *zap.Logger) *Gateway {
	g := &Gateway{create: create, currency: strings.ToLower(currency), logger: logger}
	g.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Declined cards and bad requests say nothing about processor health.
		IsSuccessful: func(err error) bool {
			return err == nil || isRequestError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return g
}

// ToMinorUnits converts a major-unit amount to the integer minor units the
// processor expects, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateIntent creates a card payment intent and returns its client secret.
// An empty currency falls back to the gateway default.
func (g *Gateway) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (string, error) {
	if !amount.IsPositive() {
		return "", global.Validation("amount must be positive")
	}
	minor := ToMinorUnits(amount)
	if minor <= 0 {
		return "", global.Validation("amount is below the smallest currency unit")
	}
	if currency == "" {
		currency = g.currency
	}
	if g.create == nil {
		return "", global.Unavailable("payment processor is not configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, intentTimeout)
	defer cancel()

	secret, err := g.breaker.Execute(func() (string, error) {
		params := &stripe.PaymentIntentParams{
			Amount:             stripe.Int64(minor),
			Currency:           stripe.String(strings.ToLower(currency)),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		}
		params.Context = ctx
		intent, err := g.create(params)
		if err != nil {
			return "", err
		}
		return intent.ClientSecret, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", global.Unavailable("payment processor is unavailable", err)
	}
	if err != nil {
		g.logger.Error("failed to create payment intent", zap.Int64("amount", minor), zap.Error(err))
		return "", classify(err)
	}
	return secret, nil
}

// isRequestError reports a processor rejection of the request itself.
func isRequestError(err error) bool {
	var serr *stripe.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.HTTPStatusCode {
	case http.StatusBadRequest, http.StatusPaymentRequired, http.StatusNotFound:
		return true
	}
	return false
}

// classify maps processor failures onto error kinds. Anything other than a
// rejected request means the processor could not be reached or answered.
func classify(err error) error {
	if isRequestError(err) {
		var serr *stripe.Error
		errors.As(err, &serr)
		msg := serr.Msg
		if msg == "" {
			msg = "payment request was rejected"
		}
		return global.NewError(global.KindValidation, msg, err)
	}
	return global.Unavailable("payment processor is unavailable", err)
}
