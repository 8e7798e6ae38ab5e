// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainstorage

import (
	"github.com/pkg/errors"

	"github.com/bitmark-inc/chainstore/blockdigest"
	"github.com/bitmark-inc/chainstore/blockrecord"
	"github.com/bitmark-inc/chainstore/compositekey"
	"github.com/bitmark-inc/chainstore/fault"
	"github.com/bitmark-inc/chainstore/storage"
	"github.com/bitmark-inc/chainstore/transactionrecord"
)

func (op *insertBlockBody) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.insertBlockBody(w, op.block.Block)
}

func (db *LevelDBDatabase) insertBlockBody(w *storage.WriteTxn, block *blockrecord.Block) error {
	header := block.Header
	hash := header.Hash()
	height := header.Height

	db.log.Debugf("insert body: %s  height: %d  kernels: %d  outputs: %d  inputs: %d",
		hash, height, len(block.Body.Kernels), len(block.Body.Outputs), len(block.Body.Inputs))

	current, found, err := db.fetchHeaderAt(w, height)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrHeaderNotFound, "height: %d", height)
	}
	if current.Hash() != hash {
		return errors.Wrapf(fault.ErrDifferentHeaderAtHeight, "height: %d  stored: %s  body for: %s", height, current.Hash(), hash)
	}

	prior := blockrecord.NewBlockAccumulatedData()
	if height > 0 {
		data, found, err := db.fetchBlockAccumulatedDataAt(w, height-1)
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrAccumulatedDataNotFound, "height: %d", height-1)
		}
		prior = data
	}

	body, err := db.hydrateInputs(w, block.Body)
	if nil != err {
		return err
	}

	model, err := LoadDeletedBitmapModel(db.tables, w)
	if nil != err {
		return err
	}

	lookup := func(outputHash blockdigest.Digest) (uint32, bool, error) {
		return db.fetchTxoPosition(w, outputHash)
	}
	acc, err := AccumulateBody(prior, model.Bitmap(), body, lookup)
	if nil != err {
		return err
	}

	for i, kernel := range body.Kernels {
		err := db.insertKernelRow(w, hash, kernel, acc.KernelStart+uint32(i))
		if nil != err {
			return err
		}
	}

	spentCommitments := []transactionrecord.Commitment{}
	for i, input := range body.Inputs {
		commitment, err := input.Commitment()
		if nil != err {
			return err
		}
		if acc.ZeroConf[i] {
			db.log.Debugf("input: %s spends output of the same block", input.OutputHash)
			spentCommitments = append(spentCommitments, commitment)
		}
		if registration := input.Spent.ValidatorNodeRegistration(); nil != registration {
			err := db.deleteValidatorNode(w, registration.PublicKey, commitment)
			if nil != err {
				return err
			}
		}
		err = db.insertInputRow(w, height, hash, input, acc.InputPositions[i])
		if nil != err {
			return err
		}
	}

	for i, output := range body.Outputs {
		outputHash := output.Hash()
		if registration := output.ValidatorNodeRegistration(); nil != registration {
			err := db.insertValidatorNode(w, header, output.Commitment, registration)
			if nil != err {
				return err
			}
		}
		if registration := output.TemplateRegistration(); nil != registration {
			err := db.insertTemplateRegistration(w, &TemplateRegistrationEntry{
				Registration: registration,
				OutputHash:   outputHash,
				BlockHeight:  height,
				BlockHash:    hash,
			})
			if nil != err {
				return err
			}
		}
		err := db.insertOutputRow(w, hash, height, header.Timestamp, output, acc.OutputStart+uint32(i))
		if nil != err {
			return err
		}
		if output.IsBurned() {
			spentCommitments = append(spentCommitments, output.Commitment)
		}
	}

	// spent or burned in this block, so never unspent
	for _, commitment := range spentCommitments {
		err := db.tables.UtxoCommitmentIndex.Delete(w, commitment[:])
		if nil != err {
			return err
		}
	}

	model.Merge(acc.Data.Deleted)
	model.Save(w)

	return db.tables.BlockAccumulatedData.Insert(w, beUint64(height), acc.Data.Pack())
}

// fill compact inputs from stored outputs or outputs of the same body
//
// returns a shallow copy of the body if anything had to be filled
func (db *LevelDBDatabase) hydrateInputs(r storage.Reader, body *transactionrecord.AggregateBody) (*transactionrecord.AggregateBody, error) {
	compact := 0
	for _, input := range body.Inputs {
		if input.IsCompact() {
			compact += 1
		}
	}
	if 0 == compact {
		return body, nil
	}

	local := make(map[blockdigest.Digest]*transactionrecord.Output, len(body.Outputs))
	for _, output := range body.Outputs {
		local[output.Hash()] = output
	}

	inputs := make([]*transactionrecord.Input, len(body.Inputs))
	for i, input := range body.Inputs {
		inputs[i] = input
		if !input.IsCompact() {
			continue
		}
		info, found, err := db.fetchOutputIn(r, input.OutputHash)
		if nil != err {
			return nil, err
		}
		var spent *transactionrecord.Output
		if found {
			if info.Output.IsPruned() {
				return nil, errors.Wrapf(fault.ErrMissingTransactionInput, "spent output: %s is pruned", input.OutputHash)
			}
			spent = info.Output.Output
		} else if output, ok := local[input.OutputHash]; ok {
			spent = output
		} else {
			return nil, errors.Wrapf(fault.ErrUnspendableInput, "output: %s", input.OutputHash)
		}
		filled := *input
		filled.AddOutputData(spent)
		inputs[i] = &filled
	}

	return &transactionrecord.AggregateBody{
		Inputs:  inputs,
		Outputs: body.Outputs,
		Kernels: body.Kernels,
	}, nil
}

func (op *insertKernel) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.insertKernelRow(w, op.headerHash, op.kernel, op.mmrPosition)
}

func (db *LevelDBDatabase) insertKernelRow(w *storage.WriteTxn, headerHash blockdigest.Digest, kernel *transactionrecord.Kernel, position uint32) error {
	hash := kernel.Hash()
	key, err := compositekey.KernelKey(headerHash[:], position, hash[:])
	if nil != err {
		return err
	}
	location := kernelLocation{
		headerHash:  headerHash,
		mmrPosition: position,
		hash:        hash,
	}.pack()

	err = db.tables.KernelExcessIndex.Insert(w, kernel.Excess[:], location)
	if nil != err {
		return err
	}
	err = db.tables.KernelExcessSigIndex.Insert(w, kernel.ExcessSigKey(), location)
	if nil != err {
		return err
	}
	row := &kernelRow{
		kernel:      kernel,
		headerHash:  headerHash,
		mmrPosition: position,
		hash:        hash,
	}
	return db.tables.Kernels.Insert(w, key, row.pack())
}

func (op *insertOutput) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	return db.insertOutputRow(w, op.headerHash, op.headerHeight, op.timestamp, op.output, op.mmrPosition)
}

func (db *LevelDBDatabase) insertOutputRow(w *storage.WriteTxn, headerHash blockdigest.Digest, height uint64, timestamp uint64, output *transactionrecord.Output, position uint32) error {
	outputHash := output.Hash()
	key, err := compositekey.OutputKey(headerHash[:], position)
	if nil != err {
		return err
	}

	err = db.tables.UtxoCommitmentIndex.Insert(w, output.Commitment[:], outputHash[:])
	if nil != err {
		return err
	}
	err = db.tables.TxosHashToIndex.Insert(w, outputHash[:], txoIndex{mmrPosition: position, key: key}.pack())
	if nil != err {
		return err
	}
	info := &UtxoMinedInfo{
		Output: PrunedOutput{
			Output:      output,
			OutputHash:  outputHash,
			WitnessHash: output.WitnessHash(),
		},
		MmrPosition:    position,
		MinedHeight:    height,
		HeaderHash:     headerHash,
		MinedTimestamp: timestamp,
	}
	return db.tables.Utxos.Insert(w, key, info.pack())
}

func (op *insertPrunedOutput) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	found, err := db.tables.BlockHashes.Has(w, op.headerHash[:])
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrHeaderNotFound, "pruned output for header: %s", op.headerHash)
	}

	key, err := compositekey.OutputKey(op.headerHash[:], op.mmrPosition)
	if nil != err {
		return err
	}
	err = db.tables.TxosHashToIndex.Insert(w, op.outputHash[:], txoIndex{mmrPosition: op.mmrPosition, key: key}.pack())
	if nil != err {
		return err
	}
	info := &UtxoMinedInfo{
		Output: PrunedOutput{
			OutputHash:  op.outputHash,
			WitnessHash: op.witnessHash,
		},
		MmrPosition:    op.mmrPosition,
		MinedHeight:    op.headerHeight,
		HeaderHash:     op.headerHash,
		MinedTimestamp: op.timestamp,
	}
	return db.tables.Utxos.Insert(w, key, info.pack())
}

// the input must carry its spent output
func (db *LevelDBDatabase) insertInputRow(w *storage.WriteTxn, height uint64, headerHash blockdigest.Digest, input *transactionrecord.Input, position uint32) error {
	commitment, err := input.Commitment()
	if nil != err {
		return err
	}

	// absent for an output created in the same block
	_, err = db.tables.UtxoCommitmentIndex.DeleteIfExists(w, commitment[:])
	if nil != err {
		return err
	}

	err = db.tables.DeletedTxoPositionIndex.Insert(w, beUint32(position), heightHash{height: height, hash: headerHash}.pack())
	if nil != err {
		return err
	}

	hash := input.Hash()
	key, err := compositekey.InputKey(headerHash[:], position, hash[:])
	if nil != err {
		return err
	}
	info := &InputMinedInfo{
		Input:       input,
		HeaderHash:  headerHash,
		MmrPosition: position,
		SpentHeight: height,
		Hash:        hash,
	}
	return db.tables.Inputs.Insert(w, key, info.pack())
}

func (op *deleteBlock) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	hash := op.hash
	db.log.Debugf("delete block: %s", hash)

	height, found, err := db.fetchHeightFromHash(w, hash)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrBlockNotFound, "hash: %s", hash)
	}
	data, found, err := db.fetchBlockAccumulatedDataAt(w, height)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrAccumulatedDataNotFound, "height: %d", height)
	}

	model, err := LoadDeletedBitmapModel(db.tables, w)
	if nil != err {
		return err
	}
	model.Remove(data.Deleted)
	model.Save(w)

	err = db.tables.BlockAccumulatedData.Delete(w, beUint64(height))
	if nil != err {
		return err
	}

	err = db.deleteBlockInputsOutputs(w, hash)
	if nil != err {
		return err
	}
	err = db.deleteBlockKernels(w, hash)
	if nil != err {
		return err
	}
	return db.deleteRegistrationsAt(w, height)
}

func (db *LevelDBDatabase) deleteBlockInputsOutputs(w *storage.WriteTxn, hash blockdigest.Digest) error {
	outputRows, err := db.tables.Utxos.DeleteByPrefix(w, hash[:])
	if nil != err {
		return err
	}
	inputRows, err := db.tables.Inputs.DeleteByPrefix(w, hash[:])
	if nil != err {
		return err
	}
	db.log.Debugf("deleted: %d outputs  %d inputs", len(outputRows), len(inputRows))

	created := make(map[blockdigest.Digest]struct{}, len(outputRows))
	outputs := make([]*UtxoMinedInfo, 0, len(outputRows))
	for _, row := range outputRows {
		info, err := unpackUtxoMinedInfo(row.Value)
		if nil != err {
			return err
		}
		created[info.Output.OutputHash] = struct{}{}
		outputs = append(outputs, info)
	}

	spent := make(map[blockdigest.Digest]struct{}, len(inputRows))
	inputs := make([]*InputMinedInfo, 0, len(inputRows))
	for _, row := range inputRows {
		info, err := unpackInputMinedInfo(row.Value)
		if nil != err {
			return err
		}
		spent[info.Input.OutputHash] = struct{}{}
		inputs = append(inputs, info)
	}

	for _, info := range outputs {
		err := db.tables.TxosHashToIndex.Delete(w, info.Output.OutputHash[:])
		if nil != err {
			return err
		}
		output := info.Output.Output
		if nil == output {
			continue
		}
		// spent in this block or burned: never in the unspent index
		if _, ok := spent[info.Output.OutputHash]; ok {
			continue
		}
		if output.IsBurned() {
			continue
		}
		err = db.tables.UtxoCommitmentIndex.Delete(w, output.Commitment[:])
		if nil != err {
			return err
		}
	}

	// outputs spent here become unspent again
	for _, info := range inputs {
		err := db.tables.DeletedTxoPositionIndex.Delete(w, beUint32(info.MmrPosition))
		if nil != err {
			return err
		}
		outputHash := info.Input.OutputHash
		if _, ok := created[outputHash]; ok {
			continue
		}
		utxo, found, err := db.fetchOutputIn(w, outputHash)
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrOutputNotFound, "output: %s", outputHash)
		}
		if utxo.Output.IsPruned() {
			return errors.Wrapf(fault.ErrMissingTransactionInput, "restored output: %s is pruned", outputHash)
		}
		err = db.tables.UtxoCommitmentIndex.Insert(w, utxo.Output.Output.Commitment[:], outputHash[:])
		if nil != err {
			return err
		}
	}
	return nil
}

func (db *LevelDBDatabase) deleteBlockKernels(w *storage.WriteTxn, hash blockdigest.Digest) error {
	rows, err := db.tables.Kernels.DeleteByPrefix(w, hash[:])
	if nil != err {
		return err
	}
	db.log.Debugf("deleted: %d kernels", len(rows))
	for _, element := range rows {
		row, err := unpackKernelRow(element.Value)
		if nil != err {
			return err
		}
		err = db.tables.KernelExcessIndex.Delete(w, row.kernel.Excess[:])
		if nil != err {
			return err
		}
		err = db.tables.KernelExcessSigIndex.Delete(w, row.kernel.ExcessSigKey())
		if nil != err {
			return err
		}
	}
	return nil
}

func (op *deleteAllInputsInBlock) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	rows, err := db.tables.Inputs.DeleteByPrefix(w, op.hash[:])
	if nil != err {
		return err
	}
	db.log.Debugf("deleted: %d inputs of: %s", len(rows), op.hash)
	return nil
}

func (op *updateDeletedBitmap) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	model, err := LoadDeletedBitmapModel(db.tables, w)
	if nil != err {
		return err
	}
	model.Merge(op.deleted)
	model.Save(w)
	return nil
}

func (op *updateBlockAccumulatedData) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	height, found, err := db.fetchHeightFromHash(w, op.hash)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrBlockNotFound, "hash: %s", op.hash)
	}

	data, found, err := db.fetchBlockAccumulatedDataAt(w, height)
	if nil != err {
		return err
	}
	if !found {
		data = blockrecord.NewBlockAccumulatedData()
	}

	values := op.values
	if nil != values.DeletedDiff {
		data.Deleted = values.DeletedDiff
	}
	if nil != values.KernelSum {
		data.KernelSum = *values.KernelSum
	}
	if nil != values.Kernels {
		data.Kernels = *values.Kernels
	}
	if nil != values.Outputs {
		data.Outputs = *values.Outputs
	}
	if nil != values.Witness {
		data.Witness = *values.Witness
	}

	db.tables.BlockAccumulatedData.Replace(w, beUint64(height), data.Pack())
	return nil
}

func (op *pruneOutputsAtMmrPositions) apply(db *LevelDBDatabase, w *storage.WriteTxn) error {
	for _, position := range op.positions {
		element, found, err := db.tables.OutputMmrSizeIndex.FirstAfter(w, beUint64(uint64(position)+1))
		if nil != err {
			return err
		}
		if !found {
			return errors.Wrapf(fault.ErrOutputNotFound, "no header contains position: %d", position)
		}
		owner, err := unpackHeightHash(element.Value)
		if nil != err {
			return err
		}
		key, err := compositekey.OutputKey(owner.hash[:], position)
		if nil != err {
			return err
		}
		db.log.Debugf("prune output: %s", key)

		err = db.pruneOutput(w, key)
		if nil != err {
			return err
		}
	}
	return nil
}

func (db *LevelDBDatabase) pruneOutput(w *storage.WriteTxn, key []byte) error {
	value, found, err := db.tables.Utxos.Get(w, key)
	if nil != err {
		return err
	}
	if !found {
		return errors.Wrapf(fault.ErrOutputNotFound, "key: %x", key)
	}
	info, err := unpackUtxoMinedInfo(value)
	if nil != err {
		return err
	}
	if info.Output.IsPruned() {
		db.log.Criticalf("output: %x is already pruned", key)
		return errors.Wrapf(fault.ErrOutputAlreadyPruned, "key: %x", key)
	}
	info.Output.Output = nil
	db.tables.Utxos.Replace(w, key, info.pack())
	return nil
}
