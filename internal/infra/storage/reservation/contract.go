package reservation

import (
	"github.com/m04kA/SMC-ParkingService/pkg/dbmetrics"
)

// DBExecutor shared executor interface from dbmetrics
type DBExecutor = dbmetrics.DBExecutor
