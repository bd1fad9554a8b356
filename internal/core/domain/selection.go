package domain

import "fmt"

// SelectionArgs holds the outcome of a successful token selection.
type SelectionArgs struct {
	Inputs           []Outpoint
	TotalTokens      map[string]int64
	Change           map[string]int64
	Recipients       []Recipient
	Instructions     []InputInstructions
	View             WalletView
	HasTokenTransfer bool
}

// Selection is the immutable result of a token input selection: which
// outputs to spend, how much of each token they carry, the change per token
// and how every token unit on each input is distributed among recipients and
// change.
// The zero value is a selection that is not ready; its accessors return
// empty values and operations consuming it fail with ErrSelectionNotReady.
type Selection struct {
	inputs           []Outpoint
	totalTokens      map[string]int64
	change           map[string]int64
	recipients       []Recipient
	instructions     []InputInstructions
	view             WalletView
	hasTokenTransfer bool
	ready            bool
}

// NewSelection returns a ready selection holding a copy of the given args.
func NewSelection(args SelectionArgs) *Selection {
	return &Selection{
		inputs:           copyOutpoints(args.Inputs),
		totalTokens:      copyAmounts(args.TotalTokens),
		change:           copyAmounts(args.Change),
		recipients:       copyRecipients(args.Recipients),
		instructions:     copyInstructions(args.Instructions),
		view:             args.View,
		hasTokenTransfer: args.HasTokenTransfer,
		ready:            true,
	}
}

func (s *Selection) IsReady() bool {
	return s != nil && s.ready
}

// Inputs returns the selected outpoints, without duplicates, sorted by
// number of carried tokens in descending order.
func (s *Selection) Inputs() []Outpoint {
	if !s.IsReady() {
		return nil
	}
	return copyOutpoints(s.inputs)
}

// TotalTokensInInputs returns the amount of every token carried by the
// selected inputs.
func (s *Selection) TotalTokensInInputs() map[string]int64 {
	if !s.IsReady() {
		return nil
	}
	return copyAmounts(s.totalTokens)
}

// ChangeTokens returns the leftover amount of every token that must go back
// to the wallet. Zero entries are never present.
func (s *Selection) ChangeTokens() map[string]int64 {
	if !s.IsReady() {
		return nil
	}
	return copyAmounts(s.change)
}

// HasChange returns whether any token is left over.
func (s *Selection) HasChange() bool {
	return s.IsReady() && len(s.change) > 0
}

// Recipients returns the token recipients, native ones excluded, in the
// order they were requested.
func (s *Selection) Recipients() []Recipient {
	if !s.IsReady() {
		return nil
	}
	return copyRecipients(s.recipients)
}

// InputInstructions returns the per-input transfer instructions. Change
// instructions target a pending change slot.
func (s *Selection) InputInstructions() []InputInstructions {
	if !s.IsReady() {
		return nil
	}
	return copyInstructions(s.instructions)
}

// ResolvedInstructions returns the per-input transfer instructions with the
// pending change slot remapped to the given output index.
func (s *Selection) ResolvedInstructions(changeIndex int) ([]InputInstructions, error) {
	if !s.IsReady() {
		return nil, ErrSelectionNotReady
	}
	list := copyInstructions(s.instructions)
	RemapPendingChange(list, changeIndex)
	return list, nil
}

// LedgerView returns the view the selection was computed against.
func (s *Selection) LedgerView() WalletView {
	if !s.IsReady() {
		return nil
	}
	return s.view
}

// HasTokenTransfer returns whether any token amount is actually moved.
func (s *Selection) HasTokenTransfer() bool {
	return s.IsReady() && s.hasTokenTransfer
}

// RequiredNativeForOutputs returns the native value to reserve for the token
// outputs: one minimum fee for each recipient and one for the metadata
// output. Nothing is required if no instruction is needed.
func (s *Selection) RequiredNativeForOutputs(minTxFee int64) (int64, error) {
	if !s.IsReady() {
		return 0, ErrSelectionNotReady
	}
	if len(s.instructions) <= 0 {
		return 0, nil
	}
	return minTxFee * int64(len(s.recipients)+1), nil
}

// WithExtraInputs returns a new selection with the given outpoints appended
// to the selected inputs. The receiver is left untouched.
func (s *Selection) WithExtraInputs(extra []Outpoint) (*Selection, error) {
	if !s.IsReady() {
		return nil, ErrSelectionNotReady
	}
	inputs := copyOutpoints(s.inputs)
	for _, op := range extra {
		if Outpoints(inputs).Contains(op) {
			return nil, fmt.Errorf(
				"%w: input %s already selected", ErrLedgerInconsistency, op,
			)
		}
		inputs = append(inputs, op)
	}
	return &Selection{
		inputs:           inputs,
		totalTokens:      copyAmounts(s.totalTokens),
		change:           copyAmounts(s.change),
		recipients:       copyRecipients(s.recipients),
		instructions:     copyInstructions(s.instructions),
		view:             s.view,
		hasTokenTransfer: s.hasTokenTransfer,
		ready:            true,
	}, nil
}

func copyOutpoints(list []Outpoint) []Outpoint {
	if list == nil {
		return nil
	}
	cp := make([]Outpoint, len(list))
	copy(cp, list)
	return cp
}

func copyRecipients(list []Recipient) []Recipient {
	if list == nil {
		return nil
	}
	cp := make([]Recipient, len(list))
	copy(cp, list)
	return cp
}

func copyAmounts(m map[string]int64) map[string]int64 {
	cp := make(map[string]int64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
