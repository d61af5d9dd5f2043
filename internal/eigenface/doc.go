/*
Package eigenface implements the numerical core of eigenface recognition.

A subject is modelled by the mean of its training crops and the top-k
eigenvectors of their pixel-space covariance matrix. An unseen crop is
scored against every model by the mean squared error between the crop and
its reconstruction in that model's subspace; the model that reconstructs it
best wins.

	x, err := eigenface.BuildDataMatrix(trainIDs, source, 50, 50)
	model, err := eigenface.BuildModel(x, 5)
	result, err := eigenface.Classify(testMatrix, []*eigenface.Model{modelA, modelB})

Covariance is computed over pixels (P×P), the classic formulation. Memory is
O(P²) and the eigen-decomposition O(P³), so a 50×50 ROI (P = 2500) is the
practical ceiling; larger ROIs would need a sample-space (N×N) covariance or a
truncated decomposition instead.

Everything here is pure and synchronous. Models are immutable once built and
may be shared between goroutines.
*/
package eigenface
