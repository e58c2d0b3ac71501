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

package commit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/keel-vcs/keel/internal/util"
	"github.com/keel-vcs/keel/pkg/keel/types"
)

// A commit object is text:
//
//	tree <digest>\n
//	parent <digest>\n        (zero or more; merge commits have two)
//	author <identity> <unix-seconds>\n
//	committer <identity> <unix-seconds>\n
//	\n
//	<message>\n
//
// The digest of this text is the commit's identity. Identities are
// free-form "Name <addr>" strings; the timestamp is whatever follows
// the final '>'.

// Putter stores a serialized object under its digest.
type Putter interface {
	Put(d types.Digest, content []byte) error
}

// Getter retrieves a serialized object by digest.
type Getter interface {
	Get(d types.Digest) ([]byte, error)
}

// Save serializes c, stores it, and returns the commit digest.
// Parsed timestamps are retained: only a zero AuthorTime or
// CommitterTime is replaced with the current wall-clock second, so a
// parse/save round trip does not rewrite history.
func Save(s Putter, c *types.Commit) (types.Digest, error) {
	now := time.Now().Unix()
	at := c.AuthorTime
	if at == 0 {
		at = now
	}
	ct := c.CommitterTime
	if ct == 0 {
		ct = now
	}

	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "author %s %d\n", c.Author, at)
	fmt.Fprintf(&b, "committer %s %d\n", c.Committer, ct)
	b.WriteByte('\n')
	b.WriteString(c.Message)
	b.WriteByte('\n')

	text := []byte(b.String())
	d := util.HashObject(text)
	if err := s.Put(d, text); err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	return d, nil
}

// Parse reads and decodes the commit named by d. Unrecognized header
// lines are ignored for forward compatibility; a commit without a
// tree line is malformed.
func Parse(g Getter, d types.Digest) (*types.Commit, error) {
	data, err := g.Get(d)
	if err != nil {
		return nil, fmt.Errorf("parse commit %s: %w", d, err)
	}

	c := &types.Commit{}
	lines := strings.Split(string(data), "\n")

	i := 0
	sawTree := false
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			i++
			break
		}
		switch {
		case strings.HasPrefix(line, "tree "):
			c.Tree = types.Digest(line[len("tree "):])
			sawTree = true
		case strings.HasPrefix(line, "parent "):
			c.Parents = append(c.Parents, types.Digest(line[len("parent "):]))
		case strings.HasPrefix(line, "author "):
			c.Author, c.AuthorTime = splitIdentity(line[len("author "):])
		case strings.HasPrefix(line, "committer "):
			c.Committer, c.CommitterTime = splitIdentity(line[len("committer "):])
		}
		// other header lines: ignored
	}

	if !sawTree {
		return nil, fmt.Errorf("commit %s has no tree line: %w", d, types.ErrMalformedObject)
	}

	body := strings.Join(lines[i:], "\n")
	c.Message = strings.TrimSuffix(body, "\n")

	if c.AuthorTime == 0 {
		c.AuthorTime = time.Now().Unix()
	}
	if c.CommitterTime == 0 {
		c.CommitterTime = time.Now().Unix()
	}
	return c, nil
}

// splitIdentity separates "Name <addr> seconds" into the identity and
// the timestamp token after the final '>'. A value without a bracket
// or a decimal timestamp yields ts 0.
func splitIdentity(value string) (identity string, ts int64) {
	end := strings.LastIndexByte(value, '>')
	if end < 0 {
		return value, 0
	}
	identity = value[:end+1]
	tok := strings.TrimSpace(value[end+1:])
	if tok == "" {
		return identity, 0
	}
	n, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return identity, 0
	}
	return identity, n
}
