package regress

import "sort"

// TreeNode is one node of a fitted regression tree. Leaves have Feature -1
// and carry the mean target of their training samples in Value.
type TreeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Left      *TreeNode `json:"l,omitempty"`
	Right     *TreeNode `json:"r,omitempty"`
}

// treeParams bound tree growth.
type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
}

// Predict walks the tree to a leaf.
func (n *TreeNode) Predict(row []float64) float64 {
	for n.Feature >= 0 {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// buildTree grows a CART regression tree on the sample indexes in idx,
// choosing at each node the (feature, threshold) split minimizing the
// children's summed squared error. Features are scanned in manifest order
// and a split must strictly improve, so construction is deterministic.
func buildTree(rows [][]float64, target []float64, idx []int, depth int, p treeParams) *TreeNode {
	mean := meanAt(target, idx)
	if depth >= p.maxDepth || len(idx) < p.minSamplesSplit {
		return &TreeNode{Feature: -1, Value: mean}
	}

	bestSSE := sseAt(target, idx, mean)
	if bestSSE == 0 {
		return &TreeNode{Feature: -1, Value: mean}
	}

	bestFeature := -1
	var bestThreshold float64

	nFeatures := len(rows[idx[0]])
	order := make([]int, len(idx))

	for f := 0; f < nFeatures; f++ {
		copy(order, idx)
		sort.SliceStable(order, func(a, b int) bool {
			return rows[order[a]][f] < rows[order[b]][f]
		})

		// Prefix sums over the sorted order let each candidate split be
		// evaluated in O(1).
		var sumL, sqL float64
		var sumR, sqR float64
		for _, i := range order {
			sumR += target[i]
			sqR += target[i] * target[i]
		}

		for k := 0; k < len(order)-1; k++ {
			y := target[order[k]]
			sumL += y
			sqL += y * y
			sumR -= y
			sqR -= y * y

			left, right := k+1, len(order)-k-1
			if left < p.minSamplesLeaf || right < p.minSamplesLeaf {
				continue
			}
			// No split between equal feature values.
			if rows[order[k]][f] == rows[order[k+1]][f] {
				continue
			}

			sse := (sqL - sumL*sumL/float64(left)) + (sqR - sumR*sumR/float64(right))
			if sse < bestSSE {
				lo, hi := rows[order[k]][f], rows[order[k+1]][f]
				mid := (lo + hi) / 2
				// Adjacent values one ULP apart round the midpoint up to
				// hi, which would send every sample left. Fall back to lo
				// so the <= partition still separates the pair.
				if mid >= hi {
					mid = lo
				}
				bestSSE = sse
				bestFeature = f
				bestThreshold = mid
			}
		}
	}

	if bestFeature < 0 {
		return &TreeNode{Feature: -1, Value: mean}
	}

	var leftIdx, rightIdx []int
	for _, i := range idx {
		if rows[i][bestFeature] <= bestThreshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}

	return &TreeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      buildTree(rows, target, leftIdx, depth+1, p),
		Right:     buildTree(rows, target, rightIdx, depth+1, p),
	}
}

func meanAt(target []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += target[i]
	}
	return sum / float64(len(idx))
}

func sseAt(target []float64, idx []int, mean float64) float64 {
	var sse float64
	for _, i := range idx {
		d := target[i] - mean
		sse += d * d
	}
	return sse
}
