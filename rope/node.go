package rope

import "strings"

const (
	// maxChildren is the maximum children per internal node before
	// splitting.
	maxChildren = 8

	// maxChunksPerLeaf is the maximum chunks in a leaf node.
	maxChunksPerLeaf = 4
)

// node is a node in the rope B+ tree. Leaves (height == 0) hold text
// chunks; internal nodes hold children plus their cached summaries so
// seeks can skip whole subtrees. Nodes are never mutated once shared;
// edits build new nodes that reference unchanged subtrees.
type node struct {
	height  uint8
	summary TextSummary

	// Internal node fields (height > 0).
	children       []*node
	childSummaries []TextSummary

	// Leaf node fields (height == 0).
	chunks []Chunk
}

func newLeaf() *node {
	return &node{height: 0}
}

func newLeafWithChunks(chunks []Chunk) *node {
	n := &node{height: 0, chunks: chunks}
	for _, c := range chunks {
		n.summary = n.summary.Add(c.Summary())
	}
	return n
}

func newInternal(children []*node) *node {
	if len(children) == 0 {
		return newLeaf()
	}
	n := &node{
		height:         children[0].height + 1,
		children:       children,
		childSummaries: make([]TextSummary, len(children)),
	}
	for i, child := range children {
		n.childSummaries[i] = child.summary
		n.summary = n.summary.Add(child.summary)
	}
	return n
}

func (n *node) isLeaf() bool {
	return n.height == 0
}

func (n *node) len() int {
	return n.summary.Bytes
}

// appendTo appends all text in this subtree to the builder.
func (n *node) appendTo(sb *strings.Builder) {
	if n.isLeaf() {
		for _, c := range n.chunks {
			sb.WriteString(c.String())
		}
		return
	}
	for _, child := range n.children {
		child.appendTo(sb)
	}
}

// appendRangeTo appends the text in [start, end) to the builder.
func (n *node) appendRangeTo(sb *strings.Builder, start, end int) {
	if start >= end {
		return
	}
	if n.isLeaf() {
		offset := 0
		for _, c := range n.chunks {
			chunkEnd := offset + c.Len()
			if chunkEnd <= start {
				offset = chunkEnd
				continue
			}
			if offset >= end {
				break
			}
			lo, hi := 0, c.Len()
			if start > offset {
				lo = start - offset
			}
			if end < chunkEnd {
				hi = end - offset
			}
			sb.WriteString(c.String()[lo:hi])
			offset = chunkEnd
		}
		return
	}
	offset := 0
	for i, child := range n.children {
		childEnd := offset + n.childSummaries[i].Bytes
		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}
		lo, hi := 0, n.childSummaries[i].Bytes
		if start > offset {
			lo = start - offset
		}
		if end < childEnd {
			hi = end - offset
		}
		child.appendRangeTo(sb, lo, hi)
		offset = childEnd
	}
}

// summaryOfRange computes the text summary of [start, end).
func (n *node) summaryOfRange(start, end int) TextSummary {
	if start >= end {
		return TextSummary{}
	}
	var sum TextSummary
	if n.isLeaf() {
		offset := 0
		for _, c := range n.chunks {
			chunkEnd := offset + c.Len()
			if chunkEnd <= start {
				offset = chunkEnd
				continue
			}
			if offset >= end {
				break
			}
			lo, hi := 0, c.Len()
			if start > offset {
				lo = start - offset
			}
			if end < chunkEnd {
				hi = end - offset
			}
			if lo == 0 && hi == c.Len() {
				sum = sum.Add(c.Summary())
			} else {
				sum = sum.Add(c.ChunkSlice.Slice(lo, hi).Summary())
			}
			offset = chunkEnd
		}
		return sum
	}
	offset := 0
	for i, child := range n.children {
		childEnd := offset + n.childSummaries[i].Bytes
		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}
		if start <= offset && end >= childEnd {
			sum = sum.Add(n.childSummaries[i])
		} else {
			lo, hi := 0, n.childSummaries[i].Bytes
			if start > offset {
				lo = start - offset
			}
			if end < childEnd {
				hi = end - offset
			}
			sum = sum.Add(child.summaryOfRange(lo, hi))
		}
		offset = childEnd
	}
	return sum
}

// split divides the subtree at the given byte offset, which must lie
// on a character boundary. Left holds [0, offset), right [offset, end).
func (n *node) split(offset int) (*node, *node) {
	if offset <= 0 {
		return newLeaf(), n
	}
	if offset >= n.len() {
		return n, newLeaf()
	}
	if n.isLeaf() {
		return n.splitLeaf(offset)
	}
	return n.splitInternal(offset)
}

func (n *node) splitLeaf(offset int) (*node, *node) {
	var left, right []Chunk
	current := 0
	for _, c := range n.chunks {
		chunkEnd := current + c.Len()
		switch {
		case chunkEnd <= offset:
			left = append(left, c)
		case current >= offset:
			right = append(right, c)
		default:
			l, r := c.Split(offset - current)
			if !l.IsEmpty() {
				left = append(left, l)
			}
			if !r.IsEmpty() {
				right = append(right, r)
			}
		}
		current = chunkEnd
	}
	return newLeafWithChunks(left), newLeafWithChunks(right)
}

func (n *node) splitInternal(offset int) (*node, *node) {
	var left, right []*node
	current := 0
	for i, child := range n.children {
		childEnd := current + n.childSummaries[i].Bytes
		switch {
		case childEnd <= offset:
			left = append(left, child)
		case current >= offset:
			right = append(right, child)
		default:
			l, r := child.split(offset - current)
			if l.len() > 0 {
				left = append(left, l)
			}
			if r.len() > 0 {
				right = append(right, r)
			}
		}
		current = childEnd
	}
	return buildFromNodes(left), buildFromNodes(right)
}

// buildFromNodes creates a balanced tree from same-height nodes.
func buildFromNodes(nodes []*node) *node {
	if len(nodes) == 0 {
		return newLeaf()
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	if len(nodes) <= maxChildren {
		return newInternal(nodes)
	}
	var parents []*node
	for i := 0; i < len(nodes); i += maxChildren {
		end := i + maxChildren
		if end > len(nodes) {
			end = len(nodes)
		}
		parents = append(parents, newInternal(nodes[i:end]))
	}
	return buildFromNodes(parents)
}

// concat joins two subtrees, merging underfull boundary chunks so the
// chunk fill invariant survives repeated edits.
func concat(left, right *node) *node {
	if left == nil || left.len() == 0 {
		if right == nil {
			return newLeaf()
		}
		return right
	}
	if right == nil || right.len() == 0 {
		return left
	}
	if left.isLeaf() && right.isLeaf() {
		return concatLeaves(left, right)
	}
	for left.height < right.height {
		left = newInternal([]*node{left})
	}
	for right.height < left.height {
		right = newInternal([]*node{right})
	}
	return mergeNodes(left, right)
}

func concatLeaves(left, right *node) *node {
	lc := left.chunks
	rc := right.chunks

	// Merge the boundary chunks when one is underfull and they fit.
	if len(lc) > 0 && len(rc) > 0 {
		last, first := lc[len(lc)-1], rc[0]
		if last.Len()+first.Len() <= MaxChunkSize &&
			(last.Len() < minChunkFill || first.Len() < minChunkFill) {
			merged := last
			merged.Append(first.ChunkSlice)
			combined := make([]Chunk, 0, len(lc)+len(rc)-1)
			combined = append(combined, lc[:len(lc)-1]...)
			combined = append(combined, merged)
			combined = append(combined, rc[1:]...)
			lc, rc = combined, nil
		}
	}

	total := len(lc) + len(rc)
	if total <= maxChunksPerLeaf {
		chunks := make([]Chunk, 0, total)
		chunks = append(chunks, lc...)
		chunks = append(chunks, rc...)
		return newLeafWithChunks(chunks)
	}
	var leaves []*node
	all := make([]Chunk, 0, total)
	all = append(all, lc...)
	all = append(all, rc...)
	for i := 0; i < len(all); i += maxChunksPerLeaf {
		end := i + maxChunksPerLeaf
		if end > len(all) {
			end = len(all)
		}
		chunks := make([]Chunk, end-i)
		copy(chunks, all[i:end])
		leaves = append(leaves, newLeafWithChunks(chunks))
	}
	return buildFromNodes(leaves)
}

func mergeNodes(left, right *node) *node {
	if left.isLeaf() {
		return concatLeaves(left, right)
	}
	all := make([]*node, 0, len(left.children)+len(right.children))
	all = append(all, left.children...)
	all = append(all, right.children...)
	return buildFromNodes(all)
}
