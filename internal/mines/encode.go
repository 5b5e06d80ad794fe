package mines

import (
	"bytes"
	"encoding/gob"
)

func DecodeGame(buf []byte) (Game, error) {
	var game Game
	err := gob.NewDecoder(bytes.NewBuffer(buf)).Decode(&game)
	if err != nil {
		return Game{}, err
	}
	return game, nil
}

func (g Game) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(g)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
