package main

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dedupfs/dedupfs"
)

func main() {
	fmt.Println("Starting dedupfs example")

	absPath, _ := filepath.Abs("ExamplePath/" + time.Now().Format("20060102-150405"))
	defer os.RemoveAll(absPath)

	engine, err := dedupfs.New(dedupfs.Config{
		Path:        absPath, // Directory for data storage
		Backend:     "file",  // Chunk files on disk, "badger" for the KV backend
		Compression: "zstd",  // At-rest compression of chunk payloads
	})
	if err != nil {
		log.Fatal(fmt.Sprintf("Failed to initialize dedupfs: %s", err))
	}
	defer engine.Close()

	// Two documents that share most of their content
	shared := generateTestData(4 * 1024 * 1024)
	first := append(append([]byte{}, shared...), []byte("appendix of the first document")...)
	second := append(append([]byte{}, shared...), []byte("a completely different appendix")...)

	recipeA, err := engine.Write("documents/first", first)
	if err != nil {
		log.Fatal(fmt.Sprintf("Error ingesting first document: %s", err))
	}
	fmt.Println("First document:", len(recipeA.Chunks), "chunks")

	recipeB, err := engine.Write("documents/second", second)
	if err != nil {
		log.Fatal(fmt.Sprintf("Error ingesting second document: %s", err))
	}
	fmt.Println("Second document:", len(recipeB.Chunks), "chunks")

	stats, err := engine.Stats()
	if err != nil {
		log.Fatal(fmt.Sprintf("Error reading stats: %s", err))
	}
	ingested := uint64(len(first) + len(second))
	fmt.Println("Ingested bytes:", ingested, "Stored bytes:", stats.TotalBytes)
	fmt.Printf("Saved %.2f%% through dedup and compression\n", 100*(1-float64(stats.TotalBytes)/float64(ingested)))

	// Restore and verify
	restored, err := engine.Read("documents/first")
	if err != nil {
		log.Fatal(fmt.Sprintf("Error restoring first document: %s", err))
	}
	if !bytes.Equal(restored, first) {
		log.Fatal("Restored bytes differ from the original")
	}
	fmt.Println("Restored first document:", len(restored), "bytes, content verified")

	ids, err := engine.ListRecipes()
	if err != nil {
		log.Fatal(fmt.Sprintf("Error listing recipes: %s", err))
	}
	fmt.Println("Stored recipes:", ids)
}

func generateTestData(size int) []byte {
	data := make([]byte, size)
	rand.Read(data)
	return data
}
