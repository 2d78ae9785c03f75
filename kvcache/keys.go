package kvcache

import "strings"

// VertexKey returns the key of a per-vertex value, such as a PageRank
// score, stored under namespace. namespace must not contain '/'.
func VertexKey(namespace, vertexID string) string {
	return namespace + "/" + vertexID
}

// SplitVertexKey splits a key built by VertexKey.
func SplitVertexKey(key string) (namespace, vertexID string, ok bool) {
	namespace, vertexID, ok = strings.Cut(key, "/")
	if !ok || namespace == "" || vertexID == "" {
		return "", "", false
	}
	return namespace, vertexID, true
}
