package interfaces

// 一条已注册的活跃连接
type Client interface {
	GetUserID() uint
	GetDisplayName() string
	QueueBytes(data []byte) error
	Close()
}

// 定义了处理传入消息的接口
// service.ChatRouter实现
type MessageHandler interface {
	HandleMessage(message []byte, senderID uint)
}

// 定义了处理连接事件的方法
// presence.Broadcaster实现
// 返回的错误来自共享在线状态存储，调用方不得静默丢弃
type ConnectionEventHandler interface {
	HandleUserConnected(userID uint, displayName string) error
	HandleUserDisconnected(userID uint, displayName string) error
}

// 本进程内 userID -> 活跃连接 的并发注册表
type ConnectionRegistry interface {
	// Connect 原子地替换当前连接并返回被取代的旧连接（可能为nil）。
	// 旧连接不会被关闭，由其自身的传输层自然失效。
	Connect(userID uint, client Client) (prev Client)
	// Disconnect 仅当存储的连接与 client 为同一对象时才移除，
	// 防止被取代的旧连接在重连之后误删新连接。
	Disconnect(userID uint, client Client) bool
	Get(userID uint) (Client, bool)
	Contains(userID uint) bool
	UserIDs() []uint
}
