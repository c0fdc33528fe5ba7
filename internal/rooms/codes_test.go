package rooms

import "testing"

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatal(err)
		}
		if !ValidCode(code) {
			t.Errorf("GenerateCode() = %q, want four decimal digits", code)
		}
	}
}

func TestValidCode(t *testing.T) {
	valid := []string{"0000", "1234", "9999"}
	for _, c := range valid {
		if !ValidCode(c) {
			t.Errorf("ValidCode(%q) = false, want true", c)
		}
	}

	invalid := []string{"", "123", "12345", "12a4", "12 4", "-123"}
	for _, c := range invalid {
		if ValidCode(c) {
			t.Errorf("ValidCode(%q) = true, want false", c)
		}
	}
}

func TestCanTransition(t *testing.T) {
	legal := [][2]Status{
		{StatusLobby, StatusPlaying},
		{StatusPlaying, StatusVoting},
		{StatusVoting, StatusResults},
		{StatusResults, StatusLobby},
	}
	for _, edge := range legal {
		if !CanTransition(edge[0], edge[1]) {
			t.Errorf("CanTransition(%s, %s) = false, want true", edge[0], edge[1])
		}
	}

	illegal := [][2]Status{
		{StatusLobby, StatusVoting},
		{StatusLobby, StatusResults},
		{StatusPlaying, StatusLobby},
		{StatusPlaying, StatusResults},
		{StatusVoting, StatusLobby},
		{StatusVoting, StatusPlaying},
		{StatusResults, StatusPlaying},
		{StatusResults, StatusVoting},
		{StatusLobby, StatusLobby},
	}
	for _, edge := range illegal {
		if CanTransition(edge[0], edge[1]) {
			t.Errorf("CanTransition(%s, %s) = true, want false", edge[0], edge[1])
		}
	}
}
