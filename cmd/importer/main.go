package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/chunkStorage/filesystemChunkStorage"
	"github.com/maxsupermanhd/TileChunk/chunkStorage/postgresChunkStorage"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

var (
	csvPath     = flag.String("csv", "", "CSV grid of texture indexes")
	storageType = flag.String("type", "", "Storage type, filesystem or postgres (env TILECHUNK_STORAGE_TYPE)")
	storageAddr = flag.String("addr", "", "Storage address (env TILECHUNK_STORAGE_ADDR)")
	mapID       = flag.Uint("map", 0, "Map id")
	layerID     = flag.Uint("layer", 0, "Layer id")
	originX     = flag.Int("x", 0, "Tile x of the first cell")
	originY     = flag.Int("y", 0, "Tile y of the first cell")
	mapW        = flag.Int("map-w", 1, "Layer width in chunks")
	mapH        = flag.Int("map-h", 1, "Layer height in chunks")
	chunkW      = flag.Int("chunk-w", 64, "Chunk width in tiles")
	chunkH      = flag.Int("chunk-h", 64, "Chunk height in tiles")
	tileW       = flag.Float64("tile-w", 16, "Tile width")
	tileH       = flag.Float64("tile-h", 16, "Tile height")
	textureW    = flag.Int("texture-w", 96, "Atlas width in pixels")
	textureH    = flag.Int("texture-h", 16, "Atlas height in pixels")
	texture     = flag.String("texture", "", "Texture name stored with a new layer")
)

func flagOrEnv(v *string, env, def string) string {
	if *v != "" {
		return *v
	}
	if e := os.Getenv(env); e != "" {
		return e
	}
	return def
}

func openStorage(t, addr string) (chunkStorage.ChunkStorage, error) {
	switch t {
	case "filesystem":
		return filesystemChunkStorage.NewFilesystemChunkStorage(addr)
	case "postgres":
		return postgresChunkStorage.NewPostgresChunkStorage(context.Background(), addr)
	}
	return nil, errors.New("unknown storage type " + t)
}

func main() {
	flag.Parse()
	log.Print("Loading env")
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}
	if *csvPath == "" {
		log.Fatal("No csv given")
	}
	st, err := openStorage(flagOrEnv(storageType, "TILECHUNK_STORAGE_TYPE", "filesystem"), flagOrEnv(storageAddr, "TILECHUNK_STORAGE_ADDR", "./storage"))
	if err != nil {
		log.Fatal(err)
	}
	defer st.Close()

	mid, lid := uint16(*mapID), uint16(*layerID)
	settings := tilemap.NewLayerSettings(
		tilemap.Size2{Width: *mapW, Height: *mapH},
		tilemap.Size2{Width: *chunkW, Height: *chunkH},
		tilemap.Vec2{Width: float32(*tileW), Height: float32(*tileH)},
		tilemap.Size2{Width: *textureW, Height: *textureH})
	sl, err := st.GetLayer(mid, lid)
	if err != nil {
		log.Fatal(err)
	}
	if sl == nil {
		log.Printf("Creating layer %d:%d", mid, lid)
		err = st.AddLayer(chunkStorage.SLayer{Map: mid, ID: lid, Texture: *texture, Settings: settings})
		if err != nil {
			log.Fatal(err)
		}
	} else {
		settings = sl.Settings
	}

	l, err := tilemap.NewMap(mid).AddLayer(lid, settings)
	if err != nil {
		log.Fatal(err)
	}
	n, err := chunkStorage.LoadLayer(st, mid, l)
	if err != nil {
		log.Printf("Errors loading existing chunks: %v", err)
	}
	log.Printf("Loaded %d existing chunks", n)

	f, err := os.Open(*csvPath)
	if err != nil {
		log.Fatal(err)
	}
	imported, err := l.ImportCSV(f, tilemap.TilePos{X: *originX, Y: *originY})
	f.Close()
	if err != nil {
		log.Printf("Import errors: %v", err)
	}
	log.Printf("Imported %d tiles", imported)

	err = chunkStorage.SaveChunks(st, mid, l, l.DirtyChunks())
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Saved %d chunks", len(l.DirtyChunks()))
}
