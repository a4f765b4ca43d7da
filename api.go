/*
	TileChunk, chunked tilemap server
	Copyright (C) 2022 Maxim Zhuchkov

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU Affero General Public License as published
	by the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU Affero General Public License for more details.

	You should have received a copy of the GNU Affero General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.

	Contact me via mail: q3.max.2011@yandex.ru or Discord: MaX#6717
*/

package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/maxsupermanhd/TileChunk/chunkStorage"
	"github.com/maxsupermanhd/TileChunk/engine"
	texturecache "github.com/maxsupermanhd/TileChunk/textureCache"
	"github.com/maxsupermanhd/TileChunk/tilemap"
)

type apiTile struct {
	Index uint32         `json:"index"`
	FlipX bool           `json:"flip_x"`
	FlipY bool           `json:"flip_y"`
	FlipD bool           `json:"flip_d"`
	Color *tilemap.Color `json:"color,omitempty"`
}

func (t apiTile) Tile() tilemap.Tile {
	ret := tilemap.Tile{TextureIndex: t.Index}
	if t.FlipX {
		ret.Flags |= tilemap.FlipX
	}
	if t.FlipY {
		ret.Flags |= tilemap.FlipY
	}
	if t.FlipD {
		ret.Flags |= tilemap.FlipD
	}
	if t.Color != nil {
		ret.Color = *t.Color
	}
	return ret
}

func apiTileFrom(t tilemap.Tile) apiTile {
	ret := apiTile{
		Index: t.TextureIndex,
		FlipX: t.Flags.Has(tilemap.FlipX),
		FlipY: t.Flags.Has(tilemap.FlipY),
		FlipD: t.Flags.Has(tilemap.FlipD),
	}
	if !t.Color.IsZero() {
		c := t.Color
		ret.Color = &c
	}
	return ret
}

type apiLayer struct {
	ID       uint16                `json:"id"`
	Settings tilemap.LayerSettings `json:"settings"`
	Texture  string                `json:"texture,omitempty"`
	Stats    tilemap.LayerStats    `json:"stats"`
}

func describeLayer(l *tilemap.Layer) apiLayer {
	ret := apiLayer{
		ID:       l.ID(),
		Settings: l.Settings(),
		Stats:    l.Stats(),
	}
	if h, ok := eng.TextureOf(l.ID()); ok {
		ret.Texture = h.String()
	}
	return ret
}

func apiListLayers(w http.ResponseWriter, r *http.Request) (int, string) {
	setContentTypeJson(w)
	ret := []apiLayer{}
	for _, l := range eng.Map().Layers() {
		ret = append(ret, describeLayer(l))
	}
	return marshalOrFail(200, ret)
}

func apiGetLayer(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	setContentTypeJson(w)
	return marshalOrFail(200, describeLayer(l))
}

func apiAddLayer(w http.ResponseWriter, r *http.Request) (int, string) {
	var spec engine.LayerSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		return 400, "Bad layer spec: " + err.Error()
	}
	l, err := eng.AddLayer(spec)
	if err != nil {
		return errorCode(err), err.Error()
	}
	if s := persistStorage(); s != nil {
		err = s.AddLayer(chunkStorage.SLayer{Map: eng.Map().ID(), ID: spec.ID, Texture: spec.Texture, Settings: spec.Settings})
		if err != nil && !errors.Is(err, chunkStorage.ErrAlreadyExists) {
			return 500, "Layer added but not persisted: " + err.Error()
		}
	}
	layerEvents.Broadcast(layerEvent{Action: "layerAdd", Layer: int(l.ID()), Data: describeLayer(l)})
	setContentTypeJson(w)
	return marshalOrFail(201, describeLayer(l))
}

func apiUpdateLayerSettings(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	var s tilemap.LayerSettings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		return 400, "Bad settings: " + err.Error()
	}
	if err := eng.Map().UpdateLayerSettings(l.ID(), s); err != nil {
		return errorCode(err), err.Error()
	}
	setContentTypeJson(w)
	return marshalOrFail(200, describeLayer(l))
}

func varTilePos(r *http.Request) (tilemap.TilePos, error) {
	x, err := varInt(r, "x")
	if err != nil {
		return tilemap.TilePos{}, err
	}
	y, err := varInt(r, "y")
	if err != nil {
		return tilemap.TilePos{}, err
	}
	return tilemap.TilePos{X: x, Y: y}, nil
}

func apiGetTile(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	pos, err := varTilePos(r)
	if err != nil {
		return 400, err.Error()
	}
	t, ok := l.GetTile(pos)
	if !ok {
		return 404, "No tile at " + pos.String()
	}
	setContentTypeJson(w)
	return marshalOrFail(200, apiTileFrom(t))
}

func apiSetTile(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	pos, err := varTilePos(r)
	if err != nil {
		return 400, err.Error()
	}
	var t apiTile
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return 400, "Bad tile: " + err.Error()
	}
	tile := t.Tile()
	if err := l.SetTile(pos, tile); err != nil {
		return errorCode(err), err.Error()
	}
	layerEvents.Broadcast(tileEvent("tileSet", l.ID(), pos, &tile))
	if _, err := eng.RebuildLayer(l.ID()); err != nil {
		log.Printf("Rebuild after tile set on layer %d: %v", l.ID(), err)
	}
	return 200, "Tile set"
}

func apiRemoveTile(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	pos, err := varTilePos(r)
	if err != nil {
		return 400, err.Error()
	}
	if err := l.RemoveTile(pos); err != nil {
		return errorCode(err), err.Error()
	}
	layerEvents.Broadcast(tileEvent("tileRemove", l.ID(), pos, nil))
	return 200, "Tile removed"
}

func apiFillLayer(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	var t apiTile
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return 400, "Bad tile: " + err.Error()
	}
	if err := l.Fill(t.Tile()); err != nil {
		return errorCode(err), err.Error()
	}
	return 200, "Layer filled"
}

func formInt(r *http.Request, name string) (int, error) {
	v := r.FormValue(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func apiImportCSV(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	x, err := formInt(r, "x")
	if err != nil {
		return 400, "Bad x: " + err.Error()
	}
	y, err := formInt(r, "y")
	if err != nil {
		return 400, "Bad y: " + err.Error()
	}
	n, err := l.ImportCSV(r.Body, tilemap.TilePos{X: x, Y: y})
	setContentTypeJson(w)
	ret := map[string]any{"imported": n}
	if err != nil {
		ret["error"] = err.Error()
		return marshalOrFail(errorCode(err), ret)
	}
	return marshalOrFail(200, ret)
}

func apiDirtyChunks(w http.ResponseWriter, r *http.Request) (int, string) {
	l, code, msg := varLayer(r)
	if l == nil {
		return code, msg
	}
	setContentTypeJson(w)
	return marshalOrFail(200, l.DirtyChunks())
}

func apiAdvanceFrame(w http.ResponseWriter, r *http.Request) (int, string) {
	f, err := eng.AdvanceFrame()
	if f == nil {
		return 500, err.Error()
	}
	setContentTypeJson(w)
	ret := map[string]any{
		"frame":   f.Number,
		"changed": f.Changed(),
	}
	if err != nil {
		ret["error"] = err.Error()
	}
	return marshalOrFail(200, ret)
}

func apiListRenderers(w http.ResponseWriter, r *http.Request) (int, string) {
	keys := make([]string, 0, len(rends))
	for _, rr := range rends {
		keys = append(keys, rr.Name)
	}
	sort.Strings(keys)
	setContentTypeJson(w)
	return marshalOrFail(200, keys)
}

func apiListTextures(w http.ResponseWriter, r *http.Request) (int, string) {
	type textureInfo struct {
		Layer    uint16 `json:"layer"`
		Handle   string `json:"handle"`
		Name     string `json:"name"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
		Sampling string `json:"sampling"`
		Ready    bool   `json:"ready"`
	}
	ret := []textureInfo{}
	for _, l := range eng.Map().Layers() {
		h, ok := eng.TextureOf(l.ID())
		if !ok {
			continue
		}
		t, ok := eng.Textures().Get(h)
		if !ok {
			continue
		}
		ret = append(ret, textureInfo{
			Layer:    l.ID(),
			Handle:   h.String(),
			Name:     t.Name,
			Width:    t.Width,
			Height:   t.Height,
			Sampling: t.Sampling.String(),
			Ready:    t.Ready,
		})
	}
	setContentTypeJson(w)
	return marshalOrFail(200, ret)
}

func apiGetTexture(w http.ResponseWriter, r *http.Request) (int, string) {
	h, err := texturecache.ParseHandle(mux.Vars(r)["handle"])
	if err != nil {
		return 400, "Bad texture handle: " + err.Error()
	}
	t, ok := eng.Textures().Get(h)
	if !ok {
		return 404, "Texture " + h.String() + " not found"
	}
	setContentTypeJson(w)
	return marshalOrFail(200, map[string]any{
		"handle":   t.Handle.String(),
		"name":     t.Name,
		"width":    t.Width,
		"height":   t.Height,
		"sampling": t.Sampling.String(),
		"usage":    t.Usage,
		"ready":    t.Ready,
	})
}

func apiSaveConfig(w http.ResponseWriter, r *http.Request) (int, string) {
	if err := saveConfig(); err != nil {
		return 500, err.Error()
	}
	return 200, "Config saved"
}

type apiStorage struct {
	Name         string
	Type         string
	Online       bool
	KeepsHistory bool
}

func apiStoragesGET(w http.ResponseWriter, r *http.Request) (int, string) {
	ret := []apiStorage{}
	for _, s := range storagesSnapshot() {
		st := apiStorage{
			Name:   s.Name,
			Type:   s.Type,
			Online: s.Driver != nil,
		}
		if s.Driver != nil {
			st.KeepsHistory = s.Driver.GetAbilities().CanPreserveOldChunks
		}
		ret = append(ret, st)
	}
	setContentTypeJson(w)
	return marshalOrFail(200, ret)
}

// apiStoredLayersGET lists layers of every online storage.
func apiStoredLayersGET(w http.ResponseWriter, r *http.Request) (int, string) {
	setContentTypeJson(w)
	return marshalOrFail(200, chunkStorage.ListLayers(storagesSnapshot()))
}

func apiStorageReinit(w http.ResponseWriter, r *http.Request) (int, string) {
	sname := mux.Vars(r)["storage"]
	storagesLock.Lock()
	defer storagesLock.Unlock()
	for i := range storages {
		if storages[i].Name == sname {
			if storages[i].Driver != nil {
				return 200, "Already initialized"
			}
			driver, err := initStorage(storages[i].Type, storages[i].Address)
			if err != nil {
				return 500, err.Error()
			}
			ver, err := driver.GetStatus()
			if err != nil {
				driver.Close()
				return 500, err.Error()
			}
			storages[i].Driver = driver
			return 200, ver
		}
	}
	return 404, ""
}

func apiStorageAdd(w http.ResponseWriter, r *http.Request) (int, string) {
	name := r.FormValue("name")
	if name == "" {
		return 400, "Empty name"
	}
	address := r.FormValue("address")
	if address == "" {
		return 400, "Empty address"
	}
	t := r.FormValue("type")
	if t == "" {
		return 400, "Empty type"
	}
	storagesLock.Lock()
	defer storagesLock.Unlock()
	for i := range storages {
		if storages[i].Name == name {
			return 400, "Storage with that name already exists"
		}
	}
	driver, err := initStorage(t, address)
	if err != nil {
		if errors.Is(err, errStorageTypeNotImplemented) {
			return 400, err.Error()
		}
		return 500, err.Error()
	}
	ver, err := driver.GetStatus()
	if err != nil {
		driver.Close()
		return 500, err.Error()
	}
	storages = append(storages, chunkStorage.Storage{
		Name:    name,
		Type:    t,
		Address: address,
		Driver:  driver,
	})
	cfg.Set(confTree(storages), "storages")
	return 200, ver
}
