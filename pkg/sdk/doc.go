// Package paperfinder embeds the past-paper question finder in a Go program:
// similarity search over the question index, OCR of photographed questions,
// search sessions with a worksheet selection, and A4 worksheet export.
//
// Sessions live in memory by default, or in Redis/Valkey:
//
//	client, _ := paperfinder.New(ctx,
//	    paperfinder.WithPinecone(os.Getenv("PINECONE_API_KEY"), os.Getenv("PINECONE_HOST")),
//	    paperfinder.WithAssetsURL("https://paperfinder.example.com"),
//	)
//	defer client.Close()
//
//	matches, _ := client.Search(ctx, "solve simultaneous equations", &paperfinder.SearchOptions{
//	    Level: paperfinder.LevelHigher,
//	})
//	ws, _ := client.Worksheet(ctx, []string{matches[0].LabelID}, paperfinder.WorksheetInterleaved)
//	_ = os.WriteFile(ws.Name, ws.Data, 0o600)
package paperfinder
