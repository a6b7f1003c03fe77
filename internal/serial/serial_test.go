package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenTransport_Unknown(t *testing.T) {
	conn, err := OpenTransport("rs485", "/dev/null", 4800, 0)
	require.Error(t, err)
	require.Nil(t, conn)
}

func TestOpenTransport_MissingDevice(t *testing.T) {
	for _, tr := range []Transport{TransportMarked, TransportPlain} {
		conn, err := OpenTransport(tr, "/dev/does-not-exist-seatalk", 4800, 0)
		require.Error(t, err, string(tr))
		require.Nil(t, conn, string(tr))
	}
}
