package security

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidSignature = errors.New("invalid signature")

// RecoverPersonalSign returns the address that produced sig over message with
// personal_sign (EIP-191). Wallets emit v as 27/28; both that and 0/1 are accepted.
func RecoverPersonalSign(message, sig string) (common.Address, error) {
	raw, err := hexutil.Decode(strings.TrimSpace(sig))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(raw) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(raw))
	}
	if raw[crypto.RecoveryIDOffset] >= 27 {
		raw[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyPersonalSign checks that expected signed message.
func VerifyPersonalSign(expected common.Address, message, sig string) error {
	signer, err := RecoverPersonalSign(message, sig)
	if err != nil {
		return err
	}
	if signer != expected {
		return ErrInvalidSignature
	}
	return nil
}
