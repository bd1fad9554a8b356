package domain

import (
	"encoding/json"
	"fmt"
)

// OutputSlot is the destination of a transfer instruction: either the
// recipient at a given index or the change output, whose index is not known
// until the transaction is laid out.
type OutputSlot struct {
	index         int
	pendingChange bool
}

// RecipientSlot targets the output of the recipient at index i.
func RecipientSlot(i int) OutputSlot {
	return OutputSlot{index: i}
}

// PendingChangeSlot targets the change output, not yet placed.
func PendingChangeSlot() OutputSlot {
	return OutputSlot{pendingChange: true}
}

func (s OutputSlot) IsPendingChange() bool {
	return s.pendingChange
}

// Index returns the output index and false if the slot is pending change.
func (s OutputSlot) Index() (int, bool) {
	if s.pendingChange {
		return 0, false
	}
	return s.index, true
}

func (s OutputSlot) String() string {
	if s.pendingChange {
		return "change"
	}
	return fmt.Sprintf("%d", s.index)
}

func (s OutputSlot) MarshalJSON() ([]byte, error) {
	if s.pendingChange {
		return json.Marshal("change")
	}
	return json.Marshal(s.index)
}

// TransferInstruction moves an amount of the token currently being
// distributed from an input to an output.
type TransferInstruction struct {
	Amount    int64
	Output    OutputSlot
	SkipInput bool
}

// InputInstructions lists, for one selected input, the instructions that
// distribute its tokens in order.
type InputInstructions struct {
	Input        Outpoint
	Instructions []TransferInstruction
}

// RemapPendingChange rewrites in place every instruction targeting the
// pending change to the given output index.
func RemapPendingChange(instructions []InputInstructions, changeIndex int) {
	for i := range instructions {
		for j := range instructions[i].Instructions {
			ti := &instructions[i].Instructions[j]
			if ti.Output.IsPendingChange() {
				ti.Output = RecipientSlot(changeIndex)
			}
		}
	}
}

func copyInstructions(list []InputInstructions) []InputInstructions {
	if list == nil {
		return nil
	}
	cp := make([]InputInstructions, 0, len(list))
	for _, in := range list {
		tis := make([]TransferInstruction, len(in.Instructions))
		copy(tis, in.Instructions)
		cp = append(cp, InputInstructions{in.Input, tis})
	}
	return cp
}
