package a2s

// Player is one entry of an A2S_PLAYER response. Deaths and Money are
// only populated (HasShipFields true) when the owning endpoint's AppID
// is 2400 ("The Ship"), which appends two extra int32 fields per player.
type Player struct {
	Index    byte
	Name     string
	Score    int32
	Duration float32

	HasShipFields bool
	Deaths        int32
	Money         int32
}

// ParsePlayers parses the body of a 0x44 A2S_PLAYER response (the type
// byte already consumed by the caller). ship selects the 2400 ("The
// Ship") schema, which appends Deaths/Money to each player.
//
// Parsing stops early, without error, if the buffer runs out before
// count players have been read: servers in the wild sometimes
// under-report real-world trailing data.
func ParsePlayers(data []byte, ship bool) ([]Player, error) {
	r := NewReader(data)

	count, err := r.ReadU8()
	if err != nil {
		return nil, err
	}

	players := make([]Player, 0, count)
	for i := 0; i < int(count) && r.Len() > 0; i++ {
		var p Player

		index, err := r.ReadU8()
		if err != nil {
			break
		}
		p.Index = index

		name, err := r.ReadString()
		if err != nil {
			break
		}
		p.Name = name

		score, err := r.ReadI32()
		if err != nil {
			break
		}
		p.Score = score

		duration, err := r.ReadF32()
		if err != nil {
			break
		}
		p.Duration = duration

		if ship {
			deaths, err := r.ReadI32()
			if err != nil {
				break
			}
			money, err := r.ReadI32()
			if err != nil {
				break
			}
			p.HasShipFields = true
			p.Deaths = deaths
			p.Money = money
		}

		players = append(players, p)
	}

	return players, nil
}
