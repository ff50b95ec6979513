package main

import (
	"github.com/ethcore/execevm/core"
	"github.com/ethcore/execevm/core/state"
)

// jsonResult is the --output.result document: a receipt-level summary of
// the block plus (Amsterdam+) the recorded Block Access List hash, the
// shape t8n's result.json takes for the fields this core actually
// produces (state-root assembly and receipt-trie rooting are the trie
// engine's job, outside this package's scope).
type jsonResult struct {
	StateRoot       string            `json:"stateRoot,omitempty"`
	GasUsed         string            `json:"gasUsed"`
	Receipts        []jsonReceipt     `json:"receipts"`
	Requests        []string          `json:"requests,omitempty"`
	BlockAccessHash string            `json:"blockAccessListHash,omitempty"`
	Alloc           map[string]string `json:"allocDiff,omitempty"`
}

type jsonReceipt struct {
	TxHash            string `json:"transactionHash"`
	Status            string `json:"status"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
	GasUsed           string `json:"gasUsed"`
	ContractAddress   string `json:"contractAddress,omitempty"`
	LogsCount         int    `json:"logsCount"`
}

func buildResult(res *core.BlockExecutionResult, updates []state.AccountUpdate) (*jsonResult, error) {
	out := &jsonResult{
		GasUsed:  hexUint64(res.GasUsed),
		Receipts: make([]jsonReceipt, len(res.Receipts)),
	}
	for i, r := range res.Receipts {
		jr := jsonReceipt{
			TxHash:            r.TxHash.String(),
			CumulativeGasUsed: hexUint64(r.CumulativeGasUsed),
			GasUsed:           hexUint64(r.GasUsed),
			LogsCount:         len(r.Logs),
		}
		if r.Status == 1 {
			jr.Status = "0x1"
		} else {
			jr.Status = "0x0"
		}
		if !r.ContractAddress.IsZero() {
			jr.ContractAddress = r.ContractAddress.String()
		}
		out.Receipts[i] = jr
	}
	for _, enc := range res.Requests {
		out.Requests = append(out.Requests, hexBytes(append([]byte{enc.Type}, enc.Data...)))
	}
	if res.BlockAccessList != nil {
		h, err := res.BlockAccessList.Hash()
		if err != nil {
			return nil, err
		}
		out.BlockAccessHash = h.String()
	}
	if len(updates) > 0 {
		out.Alloc = make(map[string]string, len(updates))
		for _, u := range updates {
			if u.Balance != nil {
				out.Alloc[u.Address.String()] = u.Balance.String()
			}
		}
	}
	return out, nil
}

func hexUint64(v uint64) string {
	return "0x" + uint64ToHex(v)
}

func uint64ToHex(v uint64) string {
	if v == 0 {
		return "0"
	}
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = hexDigits[v%16]
		v /= 16
	}
	return string(buf[i:])
}

func hexBytes(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 2+len(b)*2)
	out[0], out[1] = '0', 'x'
	for i, c := range b {
		out[2+i*2] = hexDigits[c>>4]
		out[3+i*2] = hexDigits[c&0xf]
	}
	return string(out)
}
