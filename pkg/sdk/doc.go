// Package cinedex embeds the cached catalog search layer in a Go program.
//
// The client reads films, persons and genres from a full-text index
// (Elasticsearch or RediSearch) through a Redis/Valkey response cache.
// Concurrent identical requests share one index query.
//
//	client, _ := cinedex.New(ctx,
//	    cinedex.WithRedisCache("localhost:6379", ""),
//	    cinedex.WithElasticsearch([]string{"http://localhost:9200"}, "", ""),
//	)
//	defer client.Close()
//
//	page, _ := client.Films().Search(ctx, cinedex.Request{
//	    Text:    "star wars",
//	    Filters: map[string]string{"imdb_rating": "7.5.."},
//	    Sort:    "-imdb_rating",
//	})
//	film, _ := client.Films().Get(ctx, "tt0076759")
package cinedex
