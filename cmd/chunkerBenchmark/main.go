package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dedupfs/dedupfs"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: chunkerBenchmark <path of data to be ingested> <path of store>")
		os.Exit(1)
	}

	dataPath := os.Args[1]
	storePath := os.Args[2]

	checkDataPath(dataPath)

	absoluteDataPath, err := filepath.Abs(dataPath)
	if err != nil {
		fmt.Printf("Failed to get absolute path of data directory: %s\n", err)
		os.Exit(1)
	}
	absoluteStorePath, err := filepath.Abs(storePath)
	if err != nil {
		fmt.Printf("Failed to get absolute path of store directory: %s\n", err)
		os.Exit(1)
	}

	fmt.Println("Files to ingest:", absoluteDataPath)
	fmt.Println("Store path:", absoluteStorePath)

	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)

	engine, err := dedupfs.New(dedupfs.Config{
		Path:    absoluteStorePath,
		Backend: "badger",
		Logger:  log,
	})
	if err != nil {
		fmt.Printf("Failed to open store: %s\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	var totalBytes uint64
	start := time.Now()

	err = filepath.WalkDir(absoluteDataPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Failed to read file %s: %s\n", path, err)
			return nil
		}

		recipe, err := engine.Write(path, data)
		if err != nil {
			fmt.Printf("Failed to ingest file %s: %s\n", path, err)
			return nil
		}

		totalBytes += recipe.TotalSize
		fmt.Println("File:", path, "Chunks:", len(recipe.Chunks), "Unique:", recipe.UniqueChunks())
		return nil
	})
	if err != nil {
		fmt.Printf("Failed to process files: %s\n", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)

	stats, err := engine.Stats()
	if err != nil {
		fmt.Printf("Failed to read store stats: %s\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Ingested bytes:", totalBytes)
	fmt.Println("Stored chunks:", stats.Chunks, "Stored bytes:", stats.TotalBytes)
	if totalBytes > 0 {
		fmt.Printf("Dedup ratio: %.2f%%\n", 100*(1-float64(stats.TotalBytes)/float64(totalBytes)))
		fmt.Printf("Throughput: %.2f MiB/s\n", float64(totalBytes)/(1024*1024)/elapsed.Seconds())
	}
}

func checkDataPath(path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("Failed to access data path: %s\n", err)
		os.Exit(1)
	}
	if !info.IsDir() {
		fmt.Println("Provided data path is not a directory")
		os.Exit(1)
	}

	files, err := os.ReadDir(path)
	if err != nil {
		fmt.Printf("Failed to read directory: %s\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("Data path contains no files")
		os.Exit(1)
	}
}
