package a2s

import "strconv"

// InfoVariant is the tagged variant of server-info record: either a
// modern SourceInfo or the obsolete GoldSourceInfo. Modeling this as an
// interface instead of one struct with a pile of optional fields keeps
// parser output total and makes the variant of record explicit at every
// call site, per the REDESIGN FLAGS note on dictionary-shaped results.
type InfoVariant interface {
	infoVariant()
}

// ShipInfo is the mode/witnesses/duration triple present only when
// SourceInfo.AppID is 2400 ("The Ship").
type ShipInfo struct {
	Mode      byte
	Witnesses byte
	Duration  byte // seconds
}

// SpectatorInfo is the SourceTV relay address, present when EDF bit
// 0x40 is set.
type SpectatorInfo struct {
	Port uint16
	Name string
}

// ExtendedInfo holds the optional trailer fields gated by SourceInfo.EDF.
// Only fields whose Has* flag is true were present on the wire; SteamID
// and GameID are rendered as decimal strings since they are 64-bit and
// only ever used for display/comparison, not arithmetic.
type ExtendedInfo struct {
	HasPort   bool
	Port      uint16
	HasSteamID bool
	SteamID   string
	Spectator *SpectatorInfo
	HasKeywords bool
	Keywords  string
	HasGameID bool
	GameID    string
}

// SourceInfo is the A2S_INFO response body (type byte 0x49) for
// Source-engine servers.
type SourceInfo struct {
	Protocol    byte
	Name        string
	Map         string
	Folder      string
	Game        string
	AppID       uint16
	Players     byte
	MaxPlayers  byte
	Bots        byte
	ServerType  byte // 'd' dedicated, 'l' listen, 'p' SourceTV proxy
	Environment byte // 'l' linux, 'w' windows, 'm' mac
	Visibility  byte // 0 public, 1 private
	VAC         byte
	Ship        *ShipInfo // non-nil only when AppID == 2400
	Version     string
	EDF         byte
	Extended    ExtendedInfo
}

func (*SourceInfo) infoVariant() {}

// ModInfo is the GoldSource mod sub-record, present when the mod flag
// in a GoldSourceInfo response is 1.
type ModInfo struct {
	Link         string
	DownloadLink string
	Version      int32
	Size         int32
	ModType      byte
	DLL          byte
}

// GoldSourceInfo is the A2S_INFO response body (type byte 0x6D), the
// obsolete pre-Source info schema.
type GoldSourceInfo struct {
	Address     string
	Name        string
	Map         string
	Folder      string
	Game        string
	Players     byte
	MaxPlayers  byte
	Protocol    byte
	ServerType  byte
	Environment byte
	Visibility  byte
	Mod         *ModInfo
	VAC         byte
	Bots        byte
}

func (*GoldSourceInfo) infoVariant() {}

const appIDTheShip uint16 = 2400

// ParseSourceInfo parses the body of a 0x49 A2S_INFO response (the type
// byte already consumed by the caller).
func ParseSourceInfo(data []byte) (*SourceInfo, error) {
	r := NewReader(data)
	info := &SourceInfo{}

	var err error
	if info.Protocol, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Map, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Folder, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Game, err = r.ReadString(); err != nil {
		return nil, err
	}
	appID, err := r.ReadI16()
	if err != nil {
		return nil, err
	}
	info.AppID = uint16(appID)
	if info.Players, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.MaxPlayers, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.Bots, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.ServerType, err = r.ReadChar(); err != nil {
		return nil, err
	}
	if info.Environment, err = r.ReadChar(); err != nil {
		return nil, err
	}
	if info.Visibility, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.VAC, err = r.ReadU8(); err != nil {
		return nil, err
	}

	if info.AppID == appIDTheShip {
		ship := &ShipInfo{}
		if ship.Mode, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if ship.Witnesses, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if ship.Duration, err = r.ReadU8(); err != nil {
			return nil, err
		}
		info.Ship = ship
	}

	if info.Version, err = r.ReadString(); err != nil {
		return nil, err
	}

	// The EDF trailer is absent on some minimal responses in the wild;
	// treat a short read here as "no trailer" rather than a hard failure.
	edf, err := r.ReadU8()
	if err != nil {
		return info, nil
	}
	info.EDF = edf

	if err := parseExtendedInfo(r, &info.Extended, edf); err != nil {
		return nil, err
	}

	return info, nil
}

func parseExtendedInfo(r *Reader, ext *ExtendedInfo, edf byte) error {
	if edf&0x80 != 0 {
		port, err := r.ReadI16()
		if err != nil {
			return err
		}
		ext.HasPort = true
		ext.Port = uint16(port)
	}
	if edf&0x10 != 0 {
		steamID, err := r.ReadU64()
		if err != nil {
			return err
		}
		ext.HasSteamID = true
		ext.SteamID = strconv.FormatUint(steamID, 10)
	}
	if edf&0x40 != 0 {
		port, err := r.ReadI16()
		if err != nil {
			return err
		}
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		ext.Spectator = &SpectatorInfo{Port: uint16(port), Name: name}
	}
	if edf&0x20 != 0 {
		keywords, err := r.ReadString()
		if err != nil {
			return err
		}
		ext.HasKeywords = true
		ext.Keywords = keywords
	}
	if edf&0x01 != 0 {
		gameID, err := r.ReadU64()
		if err != nil {
			return err
		}
		ext.HasGameID = true
		ext.GameID = strconv.FormatUint(gameID, 10)
	}
	return nil
}

// ParseGoldSourceInfo parses the body of a 0x6D A2S_INFO response (the
// type byte already consumed by the caller).
func ParseGoldSourceInfo(data []byte) (*GoldSourceInfo, error) {
	r := NewReader(data)
	info := &GoldSourceInfo{}

	var err error
	if info.Address, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Map, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Folder, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Game, err = r.ReadString(); err != nil {
		return nil, err
	}
	if info.Players, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.MaxPlayers, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.Protocol, err = r.ReadU8(); err != nil {
		return nil, err
	}
	if info.ServerType, err = r.ReadChar(); err != nil {
		return nil, err
	}
	if info.Environment, err = r.ReadChar(); err != nil {
		return nil, err
	}
	if info.Visibility, err = r.ReadU8(); err != nil {
		return nil, err
	}

	modFlag, err := r.ReadU8()
	if err != nil {
		return nil, err
	}

	if modFlag == 1 {
		mod := &ModInfo{}
		if mod.Link, err = r.ReadString(); err != nil {
			return nil, err
		}
		if mod.DownloadLink, err = r.ReadString(); err != nil {
			return nil, err
		}
		if _, err = r.ReadU8(); err != nil { // null byte
			return nil, err
		}
		if mod.Version, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if mod.Size, err = r.ReadI32(); err != nil {
			return nil, err
		}
		if mod.ModType, err = r.ReadU8(); err != nil {
			return nil, err
		}
		if mod.DLL, err = r.ReadU8(); err != nil {
			return nil, err
		}
		info.Mod = mod
	}

	if info.VAC, err = r.ReadU8(); err != nil {
		return nil, err
	}
	// Bots trails and is tolerated missing on some ancient servers.
	if bots, err := r.ReadU8(); err == nil {
		info.Bots = bots
	}

	return info, nil
}
