// Copyright (c) 2024 The Membercoin developers
// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// GetSigOpCount returns the static (execution-independent) sigop count
// of script: one per CHECKSIG(VERIFY), and either the pubkey count
// immediately preceding a CHECKMULTISIG(VERIFY) (if it is a small-int
// push) or the conservative worst case of 20 otherwise. Block and
// transaction validation bill this count against their MaxTxSigOpsCount
// and MaxSigOpsForBlockSize budgets without executing the script.
func GetSigOpCount(script []byte) int {
	ops, err := parseScript(script)
	if err != nil {
		return 0
	}
	return countSigOps(ops)
}

func countSigOps(ops []parsedOpcode) int {
	count := 0
	for i, op := range ops {
		switch op.opcode {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY:
			count++
		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if i > 0 && IsSmallInt(ops[i-1].opcode) {
				count += AsSmallInt(ops[i-1].opcode)
			} else {
				count += 20
			}
		}
	}
	return count
}

// GetScriptClassSigOpCount returns the sigop count of a P2SH output's
// redeem script, given the redeem script bytes recovered from the
// spending input's signature script (the last item it pushes).
func GetScriptClassSigOpCount(pkScript, sigScript []byte) int {
	if !IsPayToScriptHash(pkScript) {
		return GetSigOpCount(pkScript)
	}

	sigOps, err := parseScript(sigScript)
	if err != nil || len(sigOps) == 0 {
		return 0
	}
	last := sigOps[len(sigOps)-1]
	if last.data == nil {
		return 0
	}
	return GetSigOpCount(last.data)
}
