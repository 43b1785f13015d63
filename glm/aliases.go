package glm

type Vec4f = Vec4[float32]
