package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

const votingABI = `[
	{"name":"castVote","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"voterId","type":"string"},{"name":"candidate","type":"string"}],
	 "outputs":[]},
	{"name":"hasVoted","type":"function","stateMutability":"view",
	 "inputs":[{"name":"voterId","type":"string"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

const castVoteGasLimit = 300000

// EVM talks to the voting contract over JSON-RPC.
type EVM struct {
	eth      *ethclient.Client
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
}

func DialEVM(ctx context.Context, rpcURL, contractAddress string, chainID int64) (*EVM, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: dial rpc: %w", err)
	}

	parsed, err := abi.JSON(strings.NewReader(votingABI))
	if err != nil {
		return nil, fmt.Errorf("ledger: parse abi: %w", err)
	}

	if !common.IsHexAddress(contractAddress) {
		return nil, fmt.Errorf("ledger: invalid contract address %q", contractAddress)
	}

	return &EVM{
		eth:      eth,
		abi:      parsed,
		contract: common.HexToAddress(contractAddress),
		chainID:  big.NewInt(chainID),
	}, nil
}

func (c *EVM) PendingNonce(ctx context.Context, wallet string) (uint64, error) {
	if !common.IsHexAddress(wallet) {
		return 0, fmt.Errorf("ledger: invalid wallet address %q", wallet)
	}
	nonce, err := c.eth.PendingNonceAt(ctx, common.HexToAddress(wallet))
	if err != nil {
		return 0, fmt.Errorf("ledger: pending nonce: %w", err)
	}
	return nonce, nil
}

func (c *EVM) HasVoted(ctx context.Context, subject string) (bool, error) {
	data, err := c.abi.Pack("hasVoted", subject)
	if err != nil {
		return false, fmt.Errorf("ledger: pack hasVoted: %w", err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("ledger: call hasVoted: %w", err)
	}

	results, err := c.abi.Unpack("hasVoted", out)
	if err != nil || len(results) != 1 {
		return false, fmt.Errorf("ledger: unpack hasVoted: %w", err)
	}

	voted, ok := results[0].(bool)
	if !ok {
		return false, fmt.Errorf("ledger: hasVoted returned non-bool")
	}
	return voted, nil
}

func (c *EVM) SubmitVote(ctx context.Context, key *ecdsa.PrivateKey, nonce uint64, subject, candidate string) (*Receipt, error) {
	data, err := c.abi.Pack("castVote", subject, candidate)
	if err != nil {
		return nil, fmt.Errorf("ledger: pack castVote: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger: gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      castVoteGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return nil, fmt.Errorf("ledger: sign tx: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("ledger: broadcast: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return nil, fmt.Errorf("ledger: await receipt: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("ledger: transaction %s reverted", signed.Hash().Hex())
	}

	return &Receipt{
		TxHash:      signed.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}, nil
}

// WalletAddress derives the hex address a private key signs for.
func WalletAddress(key *ecdsa.PrivateKey) string {
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

// ParseKey decodes a hex-encoded secp256k1 private key, with or
// without the 0x prefix.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}
