package chain

import (
	"context"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// ethAPI is the subset of the eth namespace that oracle nodes use. Every
// query is answered against the latest block.
type ethAPI struct {
	chain *Simulated
}

func (api *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(ChainID())
}

func (api *ethAPI) BlockNumber(ctx context.Context) (hexutil.Uint64, error) {
	header, err := api.chain.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, err
	}
	return hexutil.Uint64(header.Number.Uint64()), nil
}

func (api *ethAPI) GetBalance(ctx context.Context, addr common.Address, _ rpc.BlockNumberOrHash) (*hexutil.Big, error) {
	balance, err := api.chain.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(balance), nil
}

func (api *ethAPI) GetCode(ctx context.Context, addr common.Address, _ rpc.BlockNumberOrHash) (hexutil.Bytes, error) {
	return api.chain.backend.CodeAt(ctx, addr, nil)
}

func (api *ethAPI) GetTransactionCount(ctx context.Context, addr common.Address, _ rpc.BlockNumberOrHash) (hexutil.Uint64, error) {
	nonce, err := api.chain.backend.PendingNonceAt(ctx, addr)
	return hexutil.Uint64(nonce), err
}

// SendRawTransaction includes a signed transaction in its own block.
func (api *ethAPI) SendRawTransaction(ctx context.Context, input hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	api.chain.mu.Lock()
	defer api.chain.mu.Unlock()
	if err := api.chain.sendAndMine(ctx, tx); err != nil {
		return common.Hash{}, err
	}
	return tx.Hash(), nil
}

type netAPI struct {
	networkID uint64
}

func (api *netAPI) Version() string {
	return strconv.FormatUint(api.networkID, 10)
}
