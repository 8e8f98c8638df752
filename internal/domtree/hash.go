package domtree

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
)

// elementHash identifies a node across rebuilds: FNV-1a over the backend
// node id plus a structural signature (node name, sorted attributes,
// parent node name). Backend ids alone are not enough because the
// browser recycles them when subtrees are replaced wholesale.
func elementHash(t *Tree, idx int) uint64 {
	n := t.Node(idx)
	h := fnv.New64a()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n.BackendNodeID))
	h.Write(buf[:])
	h.Write([]byte(n.NodeName))

	if len(n.Attributes) > 0 {
		keys := make([]string, 0, len(n.Attributes))
		for k := range n.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(n.Attributes[k]))
			h.Write([]byte{';'})
		}
	}
	if p := t.Node(n.Parent); p != nil {
		h.Write([]byte{'^'})
		h.Write([]byte(p.NodeName))
	}
	return h.Sum64()
}
