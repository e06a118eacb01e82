// Package embedder turns query text into vectors for similarity search.
//
// Client is the interface consumed by the graph client. OpenAIEmbedder talks
// to any OpenAI-compatible embeddings endpoint and CachedClient keeps recent
// query vectors in an LRU cache.
//
// # Usage
//
//	client := embedder.NewOpenAIEmbedder(apiKey, embedder.Config{
//	    Model:      "text-embedding-3-small",
//	    Dimensions: 256,
//	})
//	cached, err := embedder.NewCachedClient(client, 1024)
//
//	vec, err := cached.EmbedSingle(ctx, "ワンピース")
//
// Vectors longer than Config.Dimensions are truncated with Truncate and
// renormalized, which preserves cosine ordering for Matryoshka-trained
// models.
package embedder
