package registry

import (
	"github.com/xaionaro-go/speechenhance/pkg/audio/types"
)

type PlayerPCMFactory interface {
	NewPlayerPCM() (types.PlayerPCM, error)
}

var playerFactories factoryRegistry[PlayerPCMFactory]

func RegisterPlayerFactory(
	priority int,
	playerPCMFactory PlayerPCMFactory,
) {
	playerFactories.register(priority, playerPCMFactory)
}

func PlayerFactories() []PlayerPCMFactory {
	return playerFactories.sorted()
}
