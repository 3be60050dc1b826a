package export

import (
	gomath "math"
	"slices"

	"github.com/Faultbox/renderlink/pkg/xbuf"
)

// weld merges vertices whose attributes and skin influences are all equal,
// keeping the first occurrence, and rewrites the index arrays. Candidates
// are found through a hash table with a power of two bucket count.
func weld(m *xbuf.Mesh) {
	if len(m.VertexArrays) == 0 {
		return
	}
	n := m.VertexArrays[0].VertexCount()
	if n == 0 {
		return
	}

	var skinStart []int
	if m.Skin != nil {
		skinStart = make([]int, n+1)
		for i := 0; i < n; i++ {
			skinStart[i+1] = skinStart[i] + int(m.Skin.BoneCount[i])
		}
	}

	keys := make([][]float32, n)
	for i := range keys {
		var k []float32
		for _, va := range m.VertexArrays {
			step := int(va.Step)
			k = append(k, va.Floats[i*step:(i+1)*step]...)
		}
		if m.Skin != nil {
			for j := skinStart[i]; j < skinStart[i+1]; j++ {
				k = append(k, float32(m.Skin.BoneIndex[j]), m.Skin.BoneWeight[j])
			}
			k = append(k, float32(m.Skin.BoneCount[i]))
		}
		keys[i] = k
	}

	buckets := weldBucketCount(n)
	table := make([][]int, buckets)
	remap := make([]uint32, n)
	var kept []int
	for i, k := range keys {
		slot := hashKey(k) & uint64(buckets-1)
		found := -1
		for _, j := range table[slot] {
			if slices.Equal(keys[j], k) {
				found = j
				break
			}
		}
		if found >= 0 {
			remap[i] = remap[found]
			continue
		}
		remap[i] = uint32(len(kept))
		kept = append(kept, i)
		table[slot] = append(table[slot], i)
	}
	if len(kept) == n {
		return
	}

	for vi := range m.VertexArrays {
		va := &m.VertexArrays[vi]
		step := int(va.Step)
		floats := make([]float32, 0, len(kept)*step)
		for _, i := range kept {
			floats = append(floats, va.Floats[i*step:(i+1)*step]...)
		}
		va.Floats = floats
	}
	if m.Skin != nil {
		sk := &xbuf.Skin{BoneCount: make([]int32, 0, len(kept))}
		for _, i := range kept {
			sk.BoneCount = append(sk.BoneCount, m.Skin.BoneCount[i])
			sk.BoneIndex = append(sk.BoneIndex, m.Skin.BoneIndex[skinStart[i]:skinStart[i+1]]...)
			sk.BoneWeight = append(sk.BoneWeight, m.Skin.BoneWeight[skinStart[i]:skinStart[i+1]]...)
		}
		m.Skin = sk
	}
	for ai := range m.IndexArrays {
		ints := m.IndexArrays[ai].Ints
		for k, idx := range ints {
			ints[k] = remap[idx]
		}
	}
}

// weldBucketCount is n/32 rounded down to a power of two, at least 1.
func weldBucketCount(n int) int {
	count := n >> 5
	if count <= 1 {
		return 1
	}
	for count&(count-1) != 0 {
		count &= count - 1
	}
	return count
}

// hashKey agrees with slices.Equal on the key: -0 and +0 hash alike.
func hashKey(k []float32) uint64 {
	var h uint64
	for _, f := range k {
		if f == 0 {
			f = 0
		}
		h = h*21737 + uint64(gomath.Float32bits(f))
	}
	return h
}
