package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/layer-3/minigate/ports"
)

// EIP191Verifier verifies personal-sign (EIP-191) signatures by recovering
// the signing key from the message hash and comparing the derived address
// against the claimed one.
type EIP191Verifier struct{}

// NewEIP191Verifier creates a new EIP-191 message verifier.
func NewEIP191Verifier() ports.MessageVerifier {
	return &EIP191Verifier{}
}

// VerifyMessage checks the signature and that the signed message embeds the
// consumed nonce and the configured domain. A malformed signature is a
// verification failure, not an internal error.
func (v *EIP191Verifier) VerifyMessage(ctx context.Context, args ports.VerifyArgs) (bool, error) {
	if args.Params.Scheme != "eip191" {
		return false, fmt.Errorf("unsupported signature scheme %q", args.Params.Scheme)
	}

	// The challenge binding: the message the wallet signed must carry the
	// nonce issued for this attempt and name the verifying domain.
	if !strings.Contains(args.Message, args.Params.Nonce) ||
		!strings.Contains(args.Message, args.Params.Domain) {
		return false, nil
	}

	sig, err := hexutil.Decode(args.Signature)
	if err != nil || len(sig) != crypto.SignatureLength {
		return false, nil
	}

	// Wallets produce V as 27/28; crypto.SigToPub expects 0/1.
	sig = append([]byte(nil), sig...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	hash := accounts.TextHash([]byte(args.Message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, nil
	}

	recovered := crypto.PubkeyToAddress(*pub)
	return recovered == common.HexToAddress(args.Address), nil
}
