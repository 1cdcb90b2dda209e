package engine

type step struct {
	From   RoomStatus
	Action Action
}

var transitions = map[step]RoomStatus{
	// Waiting
	{From: StatusWaiting, Action: ActionJoin}:    StatusWaiting,
	{From: StatusWaiting, Action: ActionConnect}: StatusWaiting,
	{From: StatusWaiting, Action: ActionStart}:   StatusPlaying,
	{From: StatusWaiting, Action: ActionClose}:   StatusFinished,
	// Playing
	{From: StatusPlaying, Action: ActionConnect}: StatusPlaying,
	{From: StatusPlaying, Action: ActionDraw}:    StatusPlaying,
	{From: StatusPlaying, Action: ActionClaim}:   StatusPlaying,
	{From: StatusPlaying, Action: ActionMark}:    StatusPlaying,
	{From: StatusPlaying, Action: ActionWin}:     StatusFinished,
	{From: StatusPlaying, Action: ActionEnd}:     StatusFinished,
	{From: StatusPlaying, Action: ActionClose}:   StatusFinished,
}
