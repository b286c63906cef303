package jito

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// DefaultTransferLamports is the amount moved by the demo transfer.
const DefaultTransferLamports = uint64(1000)

// systemTransferInstruction is the System Program instruction index for Transfer.
const systemTransferInstruction = uint32(2)

// Transfer is a decoded single-transfer transaction.
type Transfer struct {
	Signature solana.Signature
	FeePayer  solana.PublicKey
	From      solana.PublicKey
	To        solana.PublicKey
	Lamports  uint64
	Blockhash solana.Hash
}

// BuildTransfer builds a transaction holding one System Program transfer from
// payer to recipient and signs it with payer. The blockhash and fee payer are
// fixed before signing, so the returned transaction is ready to encode.
func BuildTransfer(payer solana.PrivateKey, recipient solana.PublicKey, lamports uint64, blockhash solana.Hash) (*solana.Transaction, error) {
	payerKey := payer.PublicKey()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(lamports, payerKey, recipient).Build(),
		},
		blockhash,
		solana.TransactionPayer(payerKey),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payerKey) {
			return &payer
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return tx, nil
}

// EncodeTransaction serializes a signed transaction to its wire format and
// returns it base64 encoded. Transactions whose signatures do not verify
// are rejected.
func EncodeTransaction(tx *solana.Transaction) (string, error) {
	if err := tx.VerifySignatures(); err != nil {
		return "", fmt.Errorf("transaction is not signed correctly: %w", err)
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeTransfer parses a base64 wire transaction, verifies its signatures
// and extracts its single System Program transfer.
func DecodeTransfer(encoded string) (*Transfer, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	if err := tx.VerifySignatures(); err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	if len(tx.Signatures) == 0 || len(tx.Message.AccountKeys) == 0 {
		return nil, fmt.Errorf("transaction has no signatures or accounts")
	}

	if len(tx.Message.Instructions) != 1 {
		return nil, fmt.Errorf("expected 1 instruction, got %d", len(tx.Message.Instructions))
	}

	accountKeys := tx.Message.AccountKeys
	instruction := tx.Message.Instructions[0]

	if int(instruction.ProgramIDIndex) >= len(accountKeys) {
		return nil, fmt.Errorf("program id index %d out of bounds", instruction.ProgramIDIndex)
	}
	if programID := accountKeys[instruction.ProgramIDIndex]; !programID.Equals(solana.SystemProgramID) {
		return nil, fmt.Errorf("unexpected program %s", programID)
	}

	lamports, from, to, err := parseSystemTransfer(instruction, accountKeys)
	if err != nil {
		return nil, err
	}

	return &Transfer{
		Signature: tx.Signatures[0],
		FeePayer:  accountKeys[0],
		From:      from,
		To:        to,
		Lamports:  lamports,
		Blockhash: tx.Message.RecentBlockhash,
	}, nil
}

// parseSystemTransfer extracts the amount and both accounts from a System Program Transfer instruction.
func parseSystemTransfer(instruction solana.CompiledInstruction, accountKeys []solana.PublicKey) (uint64, solana.PublicKey, solana.PublicKey, error) {
	// System Transfer instruction format:
	// [0..4]  = instruction type (u32, should be 2 for Transfer)
	// [4..12] = lamports (u64)
	if len(instruction.Data) < 12 {
		return 0, solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("instruction data too short: %d bytes", len(instruction.Data))
	}

	instructionType := binary.LittleEndian.Uint32(instruction.Data[0:4])
	if instructionType != systemTransferInstruction {
		return 0, solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("not a transfer instruction: type %d", instructionType)
	}

	amount := binary.LittleEndian.Uint64(instruction.Data[4:12])

	// System Transfer accounts: [from, to]
	if len(instruction.Accounts) < 2 {
		return 0, solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("transfer missing accounts")
	}
	fromIndex, toIndex := int(instruction.Accounts[0]), int(instruction.Accounts[1])
	if fromIndex >= len(accountKeys) || toIndex >= len(accountKeys) {
		return 0, solana.PublicKey{}, solana.PublicKey{}, fmt.Errorf("transfer account index out of bounds")
	}

	return amount, accountKeys[fromIndex], accountKeys[toIndex], nil
}
