package vectordb

import (
	"fmt"
	"math"
)

// similarity scores a candidate against the query under the given metric.
// All metrics are normalized so that higher means more similar: euclidean
// distance is folded through 1/(1+d) and inner product is reported raw.
func similarity(metric Metric, a []float32, b []float32) float64 {
	switch metric {
	case MetricEuclidean:
		return 1.0 / (1.0 + euclideanDistance(a, b))
	case MetricDotProduct:
		return dotProduct(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func cosineSimilarity(a []float32, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func euclideanDistance(a []float32, b []float32) float64 {
	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

func dotProduct(a []float32, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func validateMetric(metric Metric) (Metric, error) {
	switch metric {
	case "":
		return MetricCosine, nil
	case MetricCosine, MetricEuclidean, MetricDotProduct:
		return metric, nil
	default:
		return "", fmt.Errorf("vector_db: metric %q is not supported", metric)
	}
}

// metadataMatches applies conjunctive string-equality filters to metadata.
func metadataMatches(metadata map[string]any, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	for key, want := range filters {
		value, ok := metadata[key]
		if !ok {
			return false
		}
		if fmt.Sprint(value) != want {
			return false
		}
	}
	return true
}
