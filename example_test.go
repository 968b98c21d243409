package tilestore_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/tilestore"
	"github.com/hupe1980/tilestore/tiled"
)

// Example_undo paints a pixel, takes a memento, repaints and rolls back.
func Example_undo() {
	eng, err := tilestore.New()
	if err != nil {
		log.Fatal(err)
	}
	defer eng.Close()

	dir, err := eng.NewDirectory(1, []byte{0})
	if err != nil {
		log.Fatal(err)
	}

	_ = dir.SetPixel(100, 100, []byte{5})
	m, _ := dir.GetMemento()
	_ = dir.SetPixel(100, 100, []byte{9})

	_ = dir.Rollback(m)
	px, _ := dir.Pixel(100, 100)
	fmt.Println(px[0])

	_ = dir.Rollforward(m)
	px, _ = dir.Pixel(100, 100)
	fmt.Println(px[0])
	// Output:
	// 5
	// 9
}

// Example_config parses persisted settings.
func Example_config() {
	cfg, err := tilestore.ParseConfig([]byte("maxResidentTiles: 256\nswappiness: 200\ncodec: zstd\n"))
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(cfg.MaxResidentTiles, cfg.Swappiness, cfg.Codec)
	// Output: 256 200 zstd
}

// Example_coordinates shows how pixels map to tiles.
func Example_coordinates() {
	for _, x := range []int{0, 63, 64, -1, -64, -65} {
		fmt.Printf("%d:%d ", x, tiled.ColOf(x))
	}
	fmt.Println()
	// Output: 0:0 63:0 64:1 -1:-1 -64:-1 -65:-2
}
