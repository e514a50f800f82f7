package vector

import "testing"

func BenchmarkFlatIndex_Search(b *testing.B) {
	const n, dims = 1000, 384
	ids := make([]int64, n)
	x := &FlatIndex{dims: dims, ids: ids, data: make([]float32, 0, n*dims)}
	for i := 0; i < n; i++ {
		ids[i] = int64(i + 1)
		row := make([]float32, dims)
		row[0] = float32(i) / n
		x.data = append(x.data, row...)
	}
	query := make([]float32, dims)
	query[0] = 1.0
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = x.Search(query, 10)
	}
}
