// SPDX-License-Identifier: ISC

package constants

// SubCounterCount is the fixed number of sub-counters a minter is
// partitioned into for random-mode draw spreading.
const SubCounterCount = 293

// MaxBatchSize caps any single mint, bind, pregenerate or fetch batch.
const MaxBatchSize = 10000

// QueueDatePad is the width of the zero-padded UTC timestamp used in
// queue key layout: YYYYMMDDHHMMSS.
const QueueDatePad = 14

// QueueSeqPad is the width of the zero-padded sequence number used in
// queue key layout.
const QueueSeqPad = 6

// PropertiesMnemonic is the seven-letter durability mnemonic, one
// letter per property, in fixed order: G real NAAN, R random
// generator, A no triple-vowel run, N long-term, I no hyphen in the
// prefix, T check character, E vowel-free throughout.
const PropertiesMnemonic = "GRANITE"
