package model

// GroupData is the backend's view of an ironman group.
type GroupData struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Players       []PlayerData `json:"players"`
	CurrentSeason *SeasonData  `json:"currentSeason,omitempty"`
	RecentEvents  []GameEvent  `json:"recentEvents"`
	Lives         *LivesData   `json:"lives,omitempty"`
}

// PlayerData is one roster entry.
type PlayerData struct {
	Name        string `json:"name"`
	Points      int    `json:"points"`
	IsHC        bool   `json:"isHc"`
	Status      string `json:"status"`
	TotalLevel  int    `json:"totalLevel"`
	QuestPoints int    `json:"questPoints"`
}

// SeasonData describes the competition season a group is in.
type SeasonData struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	StartDate int64  `json:"startDate"`
	EndDate   int64  `json:"endDate"`
}

// LivesData tracks shared hardcore lives.
type LivesData struct {
	Current   int      `json:"current"`
	Total     int      `json:"total"`
	LostLives []string `json:"lostLives"`
}

// Player returns the roster entry with the given name, if any.
func (g *GroupData) Player(name string) (PlayerData, bool) {
	if g == nil {
		return PlayerData{}, false
	}
	for _, p := range g.Players {
		if p.Name == name {
			return p, true
		}
	}
	return PlayerData{}, false
}

// BingoBoard is a group bingo card.
type BingoBoard struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Tiles  []BingoTile `json:"tiles"`
	Size   int         `json:"size"`
	Status string      `json:"status"`
}

// BingoTile is one square of a BingoBoard.
type BingoTile struct {
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Completed   bool   `json:"completed"`
	CompletedBy string `json:"completedBy"`
	CompletedAt int64  `json:"completedAt"`
}

// CompletedCount returns the number of completed tiles.
func (b *BingoBoard) CompletedCount() int {
	if b == nil {
		return 0
	}
	n := 0
	for _, t := range b.Tiles {
		if t.Completed {
			n++
		}
	}
	return n
}
