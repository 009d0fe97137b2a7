package model

type Phase string

const (
	P_NIGHT Phase = "night"
	P_DAY   Phase = "day"
	P_ENDED Phase = "ended"
)

func (p Phase) String() string {
	return string(p)
}

func (p Phase) DisplayName() string {
	switch p {
	case P_NIGHT:
		return "Ночь"
	case P_DAY:
		return "День"
	case P_ENDED:
		return "Игра окончена"
	}
	return string(p)
}
