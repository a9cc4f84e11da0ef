package domains

import (
	"txcluster/internal/common/model"
	"txcluster/internal/domains/common"
	"txcluster/internal/domains/handlers/clusterrun"
)

// HandlerMap 路由表（ActionType → Handler 映射）
var HandlerMap = map[string]common.HandlerServProc{
	model.ActionClusterRun: clusterrun.NewRunHandler,
}
