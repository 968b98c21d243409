// Package tiled implements a sparse, unbounded pixel surface on top of
// 64x64 tiles owned by a tile.Manager.
//
// A Directory maps tile coordinates to tiles. Reads of coordinates that
// were never written return the directory's default pixel without
// allocating anything; the first write creates the tile. Pixel coordinates
// map to tiles with floor division, so the surface extends to negative
// coordinates:
//
//	ColOf(-1)  == -1
//	ColOf(-64) == -1
//	ColOf(-65) == -2
//
// # Undo and redo
//
// GetMemento opens a copy-on-write snapshot. The first write to each
// coordinate afterwards saves the tile's previous bytes into the memento;
// tiles created afterwards are listed so that Rollback can remove them.
// Rollback moves the replaced tiles into the memento, and Rollforward puts
// them back:
//
//	m, _ := d.GetMemento()
//	_ = d.SetPixel(100, 100, []byte{9})
//	_ = d.Rollback(m)    // pixel reads as before
//	_ = d.Rollforward(m) // pixel reads 9 again
//	m.Discard()          // release the saved tiles
//
// Mementos hold ordinary registered tiles, so their copies are swapped out
// by the manager like any other tile.
package tiled
