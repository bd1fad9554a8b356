package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Outpoint identifies a transaction output by its txid and output index.
// It is a comparable value type and can be used as map key.
type Outpoint struct {
	TxID string
	VOut uint32
}

// ParseOutpoint parses an outpoint in the form "txid:vout".
func ParseOutpoint(str string) (Outpoint, error) {
	parts := strings.Split(str, ":")
	if len(parts) != 2 {
		return Outpoint{}, fmt.Errorf(
			"%w: %q must be in the form txid:vout", ErrInvalidOutpoint, str,
		)
	}
	vout, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf(
			"%w: invalid output index %q", ErrInvalidOutpoint, parts[1],
		)
	}
	o := Outpoint{parts[0], uint32(vout)}
	if err := o.Validate(); err != nil {
		return Outpoint{}, err
	}
	return o, nil
}

// Validate returns an error if the txid is not a valid chain hash.
func (o Outpoint) Validate() error {
	if len(o.TxID) != chainhash.MaxHashStringSize {
		return fmt.Errorf(
			"%w: txid must be %d hex chars", ErrInvalidOutpoint,
			chainhash.MaxHashStringSize,
		)
	}
	if _, err := chainhash.NewHashFromStr(o.TxID); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOutpoint, err)
	}
	return nil
}

// Hash returns a fixed-size digest of the outpoint, used as storage key.
func (o Outpoint) Hash() string {
	buf, _ := hex.DecodeString(o.TxID)
	buf = binary.LittleEndian.AppendUint32(buf, o.VOut)
	return hex.EncodeToString(btcutil.Hash160(buf))
}

func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.VOut)
}

// Less orders outpoints by txid and then by output index.
func (o Outpoint) Less(other Outpoint) bool {
	if o.TxID != other.TxID {
		return o.TxID < other.TxID
	}
	return o.VOut < other.VOut
}

type Outpoints []Outpoint

func (o Outpoints) String() string {
	strs := make([]string, 0, len(o))
	for _, op := range o {
		strs = append(strs, op.String())
	}
	return strings.Join(strs, ", ")
}

// Dedup returns the list without duplicates, preserving the order of first
// occurrence.
func (o Outpoints) Dedup() Outpoints {
	seen := make(map[Outpoint]struct{}, len(o))
	list := make(Outpoints, 0, len(o))
	for _, op := range o {
		if _, ok := seen[op]; ok {
			continue
		}
		seen[op] = struct{}{}
		list = append(list, op)
	}
	return list
}

// Contains returns whether the given outpoint is in the list.
func (o Outpoints) Contains(op Outpoint) bool {
	for _, v := range o {
		if v == op {
			return true
		}
	}
	return false
}
