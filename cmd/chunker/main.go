package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dedupfs/dedupfs/pkg/polyChunker"
	"github.com/dedupfs/dedupfs/pkg/types"
)

func main() {

	// check if the user has provided the file path
	if len(os.Args) < 2 {
		fmt.Println("Please provide the file path")
		os.Exit(1)
	}

	filePath := os.Args[1]

	file, err := os.Open(filePath)
	if err != nil {
		panic(err)
	}
	defer file.Close()

	chunks, err := polyChunker.ChunkReaderSynchronously(file)
	if err != nil {
		panic(err)
	}

	// create folder to store the chunks besides the original file
	outDir := filePath + "_chunks"
	err = os.Mkdir(outDir, 0755)
	if err != nil {
		panic(err)
	}

	// write the chunks to the folder, named by their digest
	recipe := types.Recipe{
		Chunks: make([]types.ChunkRef, len(chunks)),
	}
	for i, chunk := range chunks {
		recipe.Chunks[i] = types.ChunkRef{Hash: chunk.Hash, Length: chunk.DataLength}
		recipe.TotalSize += uint64(chunk.DataLength)

		err = os.WriteFile(filepath.Join(outDir, chunk.Hash.String()), chunk.Data, 0644)
		if err != nil {
			panic(err)
		}
	}

	// write the recipe as json next to the chunks
	recipeJSON, err := recipe.MarshalJSON()
	if err != nil {
		panic(err)
	}
	err = os.WriteFile(filepath.Join(outDir, "recipe.json"), recipeJSON, 0644)
	if err != nil {
		panic(err)
	}

	fmt.Println("Chunks and recipe are stored in the folder:", outDir)
	fmt.Println("Chunks:", len(recipe.Chunks), "Unique:", recipe.UniqueChunks(), "Bytes:", recipe.TotalSize)
}
