// Copyright 2025 Keel Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/keel-vcs/keel/pkg/keel/types"
	"lukechampine.com/blake3"
)

// HashContent computes a lowercase hex content hash with the given algorithm.
func HashContent(content []byte, algorithm types.HashAlgorithm) (types.Digest, error) {
	switch algorithm {
	case types.SHA1:
		sum := sha1.Sum(content)
		return types.Digest(hex.EncodeToString(sum[:])), nil
	case types.SHA256:
		sum := sha256.Sum256(content)
		return types.Digest(hex.EncodeToString(sum[:])), nil
	case types.BLAKE3:
		sum := blake3.Sum256(content)
		return types.Digest(hex.EncodeToString(sum[:])), nil
	default:
		return "", errors.New("unsupported hash algorithm")
	}
}

// HashObject computes the repository identity digest of an object's
// bytes: 40 lowercase hex characters, leading zeros preserved.
func HashObject(content []byte) types.Digest {
	sum := sha1.Sum(content)
	return types.Digest(hex.EncodeToString(sum[:]))
}
