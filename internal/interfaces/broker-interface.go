package interfaces

type ConsumerHandler interface {
	HandleMessage(key, value []byte) error
}

type ProducerHandler interface {
	PublishMessage(key, value []byte) error
}
