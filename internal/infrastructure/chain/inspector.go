package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ticketforge/ticketing-api/internal/domain"
)

// Inspector distinguishes contract accounts from user wallets by checking
// for deployed code at the address.
type Inspector struct {
	ethClient *ethclient.Client
}

func NewInspector(rpcURL string) (*Inspector, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL cannot be empty")
	}
	rpcClient, err := rpc.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC: %w", err)
	}
	return &Inspector{ethClient: ethclient.NewClient(rpcClient)}, nil
}

func (i *Inspector) IsContract(ctx context.Context, addr domain.Address) (bool, error) {
	code, err := i.ethClient.CodeAt(ctx, common.HexToAddress(string(addr)), nil)
	if err != nil {
		return false, fmt.Errorf("failed to read code at %s: %w", addr, err)
	}
	return len(code) > 0, nil
}
