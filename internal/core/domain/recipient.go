package domain

import "fmt"

// Recipient is a request to send an amount of a token to a destination.
// Recipients of NativeTokenID are paid with native value and are never part
// of token selection.
type Recipient struct {
	Destination string
	TokenID     string
	Amount      int64
}

func (r Recipient) IsNative() bool {
	return r.TokenID == NativeTokenID
}

func (r Recipient) Validate() error {
	if r.TokenID == "" {
		return fmt.Errorf("%w: missing token id", ErrInvalidRecipient)
	}
	if r.Amount < 0 {
		return fmt.Errorf(
			"%w: negative amount %d for token %s",
			ErrInvalidRecipient, r.Amount, r.TokenID,
		)
	}
	return nil
}

type Recipients []Recipient

// TokenRecipients returns the recipients requesting a token other than the
// native one, in order.
func (r Recipients) TokenRecipients() Recipients {
	list := make(Recipients, 0, len(r))
	for _, v := range r {
		if v.IsNative() {
			continue
		}
		list = append(list, v)
	}
	return list
}

// NativeAmount returns the total native value requested.
func (r Recipients) NativeAmount() int64 {
	var total int64
	for _, v := range r {
		if v.IsNative() {
			total += v.Amount
		}
	}
	return total
}

func (r Recipients) Validate() error {
	for i, v := range r {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("recipient %d: %w", i, err)
		}
	}
	return nil
}
