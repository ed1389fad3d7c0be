package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the RPC connection used for ownership reads.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	chainID   uint64
}

// Dial connects to rpcURL and resolves the node's chain id. A non-zero want
// must match the id the node reports.
func Dial(ctx context.Context, rpcURL string, want uint64) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c := &Client{rpcClient: rpcClient, ethClient: ethclient.NewClient(rpcClient)}

	id, err := c.ethClient.ChainID(ctx)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !id.IsUint64() {
		c.Close()
		return nil, fmt.Errorf("chain id %s out of range", id)
	}
	c.chainID = id.Uint64()
	if want != 0 && want != c.chainID {
		c.Close()
		return nil, fmt.Errorf("chain id mismatch: configured %d, node reports %d", want, c.chainID)
	}
	return c, nil
}

// ChainID is the id reported by the node at dial time.
func (c *Client) ChainID() uint64 {
	return c.chainID
}

func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

// CallContract runs an eth_call; a nil block number means latest.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}

var _ ethereum.ContractCaller = (*Client)(nil)
